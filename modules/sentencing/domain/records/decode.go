// Package records decodes and validates the raw rows of an import file.
//
// Every row of a batch is checked before anything touches the store, and all
// violations of the batch are returned together as one serrors.ValidationErrors.
package records

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/constants"
	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

// stateScoped is implemented by every record type.
type stateScoped interface {
	recordState() domain.StateCode
}

// Decode unmarshals and validates raw as a batch of T for state. A record whose
// state_code differs from state is a violation.
func Decode[T any](entity domain.Entity, state domain.StateCode, raw []json.RawMessage) ([]T, error) {
	verrs := &serrors.ValidationErrors{Subject: fmt.Sprintf("%s import", entity)}
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			verrs.Add(decodeError(i, err))
			continue
		}
		if err := constants.Validate.Struct(&rec); err != nil {
			verrs.AddValidator(i, err)
		}
		if s, ok := any(&rec).(stateScoped); ok {
			if got := s.recordState(); got != "" && got.Valid() && got != state {
				verrs.Add(serrors.FieldError{Index: i, Field: "state_code", Rule: "eq=" + string(state), Value: string(got)})
			}
		}
		out = append(out, rec)
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeError(index int, err error) serrors.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "$"
		}
		return serrors.FieldError{Index: index, Field: field, Rule: "type=" + typeErr.Type.String(), Value: typeErr.Value}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return serrors.FieldError{Index: index, Field: "$", Rule: "json", Value: syntaxErr.Error()}
	}
	return serrors.FieldError{Index: index, Field: "$", Rule: "decode", Value: err.Error()}
}

func stateOf(s *domain.StateCode) domain.StateCode {
	if s == nil {
		return ""
	}
	return *s
}
