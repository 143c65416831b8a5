package errors

import (
	"fmt"
	"strings"
)

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() any
}

// FieldValidationError implements ValidationError for specific field errors.
// Draft validation reports each missing required field (title, slug) against
// its specific field so the UI can attach the message to the right input.
type FieldValidationError struct {
	FieldName    string
	FieldValue   any
	ErrorMessage string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() any {
	return fve.FieldValue
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(field string, value any, message string) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// Add adds a validation error to the collection.
func (vec *ValidationErrorCollection) Add(err ValidationError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(field string, value any, message string) {
	vec.Add(NewFieldValidationError(field, value, message))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToComposerError converts the validation collection to a ComposerError.
func (vec *ValidationErrorCollection) ToComposerError() *ComposerError {
	if !vec.HasErrors() {
		return nil
	}

	var messages []string
	context := make(map[string]any)
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
		context[err.Field()] = err.Value()
	}

	return &ComposerError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeValidationFailed,
		Message:     strings.Join(messages, "; "),
		Context:     context,
		Recoverable: true,
	}
}
