package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = NewError("VALIDATION_FAILED", "validation failed")

// FieldError is a single violation on one record of a batch.
type FieldError struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

func (f FieldError) String() string {
	if f.Value != "" {
		return fmt.Sprintf("record %d: %s failed %q (got %q)", f.Index, f.Field, f.Rule, f.Value)
	}
	return fmt.Sprintf("record %d: %s failed %q", f.Index, f.Field, f.Rule)
}

// ValidationErrors collects every violation found while validating a batch.
type ValidationErrors struct {
	Subject string
	Fields  []FieldError
}

func (v *ValidationErrors) Add(fe FieldError) {
	v.Fields = append(v.Fields, fe)
}

// AddValidator appends the violations reported by go-playground/validator for record index.
func (v *ValidationErrors) AddValidator(index int, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.Add(FieldError{Index: index, Field: "$", Rule: err.Error()})
		return
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		var value string
		if fe.Value() != nil {
			value = fmt.Sprint(fe.Value())
		}
		v.Add(FieldError{
			Index: index,
			Field: fieldPath(fe.Namespace()),
			Rule:  rule,
			Value: value,
		})
	}
}

func (v *ValidationErrors) Empty() bool {
	return len(v.Fields) == 0
}

// Err returns nil when no violation was collected.
func (v *ValidationErrors) Err() error {
	if v.Empty() {
		return nil
	}
	sort.SliceStable(v.Fields, func(i, j int) bool { return v.Fields[i].Index < v.Fields[j].Index })
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.String())
	}
	subject := v.Subject
	if subject == "" {
		subject = "batch"
	}
	return fmt.Sprintf("%s: %d validation error(s): %s", subject, len(v.Fields), strings.Join(parts, "; "))
}

func (v *ValidationErrors) Unwrap() error {
	return ErrValidation
}

// fieldPath strips the top-level struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
