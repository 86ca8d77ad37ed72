package model

import "fmt"

// ParseError represents parsing errors with document format context
type ParseError struct {
	Format  string
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Format, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Format, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(format, field, message string, cause error) *ParseError {
	return &ParseError{
		Format:  format,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError is a single rule violation. Constructors return it as a
// fatal error; the validator returns it as data.
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// String renders the violation without the "validation failed" prefix
func (e *ValidationError) String() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Rule, e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// Namespace prefixes the field path of every violation, returning new values.
func Namespace(prefix string, errs []*ValidationError) []*ValidationError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]*ValidationError, len(errs))
	for i, e := range errs {
		field := prefix
		if e.Field != "" {
			field = prefix + "." + e.Field
		}
		out[i] = &ValidationError{Field: field, Value: e.Value, Rule: e.Rule, Message: e.Message}
	}
	return out
}

// Messages flattens violations into their string form
func Messages(errs []*ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}

// NoLinesError is returned when totals are computed for an invoice without lines
type NoLinesError struct {
	InvoiceID string
}

func (e *NoLinesError) Error() string {
	if e.InvoiceID == "" {
		return "cannot compute totals: invoice has no lines"
	}
	return fmt.Sprintf("cannot compute totals: invoice %s has no lines", e.InvoiceID)
}
