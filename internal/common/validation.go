package common

import (
	"fmt"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required rejects nil and blank strings. msg is the client-facing message.
func Required(msg string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		if value == nil {
			return &ValidationError{Field: fieldName, Value: value, Message: msg}
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return &ValidationError{Field: fieldName, Value: value, Message: msg}
			}
		case []byte:
			if len(v) == 0 {
				return &ValidationError{Field: fieldName, Value: value, Message: msg}
			}
		}
		return nil
	}
}

// MaxSize rejects int64 sizes above max bytes.
func MaxSize(max int64, msg string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		size, ok := value.(int64)
		if !ok {
			return nil
		}
		if size > max {
			return &ValidationError{Field: fieldName, Value: value, Message: msg}
		}
		return nil
	}
}

// OneOf rejects strings not contained in allowed.
func OneOf[T any](allowed map[string]T, normalize func(string) string, msg string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, _ := value.(string)
		if normalize != nil {
			s = normalize(s)
		}
		if _, ok := allowed[s]; !ok {
			return &ValidationError{Field: fieldName, Value: value, Message: msg}
		}
		return nil
	}
}

// ValidateAndReturnError turns collected failures into an INVALID_INPUT AppError.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidInputError(validator.ErrorMessage())
	}
	return nil
}
