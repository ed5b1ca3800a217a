package utilities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

// Violations accumulates field errors so a request reports all of them at once.
type Violations []FieldError

func (v *Violations) Add(field, format string, args ...any) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when nothing was added.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// Required adds a violation when value is blank.
func (v *Violations) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "%s is required", field)
	}
}

// Date parses a required YYYY-MM-DD value.
func (v *Violations) Date(field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.Add(field, "%s is required", field)
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		v.Add(field, "%s must be formatted YYYY-MM-DD", field)
		return time.Time{}
	}
	return t
}

// Trimmed returns nil for a nil or blank string.
func Trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// MaxLen adds a violation when value is longer than n characters.
func (v *Violations) MaxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, "%s must be at most %d characters", field, n)
	}
}
