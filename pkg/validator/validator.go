package validator

import (
	"fmt"
)

// ValidationError is one field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure from one validation pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msg := "validation errors:"
	for _, err := range e {
		msg += fmt.Sprintf("\n  - %s", err.Error())
	}
	return msg
}

// HasErrors reports whether any failure was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add records a new field-level failure.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, &ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateRequired rejects an empty string.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

// ValidateLength rejects a string outside [min, max] (max<=0 means unbounded).
func ValidateLength(field, value string, min, max int) error {
	length := len(value)
	if length < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d characters", field, min),
		}
	}
	if max > 0 && length > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is too long (max %d characters)", field, max),
		}
	}
	return nil
}

// ValidateRange rejects a value outside [min, max] (max<=0 means unbounded).
func ValidateRange(field string, value, min, max int) error {
	if value < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d", field, min),
		}
	}
	if max > 0 && value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at most %d", field, max),
		}
	}
	return nil
}

// ValidateEnum rejects a value not present in allowedValues.
func ValidateEnum(field, value string, allowedValues []string) error {
	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s must be one of: %v", field, allowedValues),
	}
}
