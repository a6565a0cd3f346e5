package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Upstream exports are not careful about JSON types: integers sometimes arrive
// as strings and nested documents sometimes arrive JSON-encoded inside a string.
// The types below accept both shapes.

// Int is an integral JSON number or numeric string.
type Int int

func (n *Int) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	f, err := parseNumber(b)
	if err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("expected an integer, got %v", f)
	}
	*n = Int(f)
	return nil
}

func (n *Int) Ptr() *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

// Number is a JSON number or numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	f, err := parseNumber(b)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date accepts YYYY-MM-DD, RFC 3339 and naive timestamps, or epoch milliseconds.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		var ms float64
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("invalid date %s", b)
		}
		d.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// StringList is a JSON array of strings, possibly encoded inside a string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	return unmarshalEmbedded(b, (*[]string)(l))
}

// Name is a person's name. Upstream sends a {given_names, middle_names,
// surname, name_suffix} document, usually JSON-encoded; a plain string is
// taken verbatim.
type Name string

type nameParts struct {
	GivenNames  string `json:"given_names"`
	MiddleNames string `json:"middle_names"`
	Surname     string `json:"surname"`
	NameSuffix  string `json:"name_suffix"`
}

func (p nameParts) String() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.GivenNames, p.MiddleNames, p.Surname, p.NameSuffix} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (n *Name) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(s)
		if !strings.HasPrefix(trimmed, "{") {
			*n = Name(trimmed)
			return nil
		}
		b = []byte(trimmed)
	}
	var p nameParts
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	*n = Name(p.String())
	return nil
}

// unmarshalEmbedded decodes b into v, unwrapping one level of string encoding.
func unmarshalEmbedded(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, v)
}

func parseNumber(b []byte) (float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", s)
		}
		return f, nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", b)
	}
	return f, nil
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
