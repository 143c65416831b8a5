// Package errors provides the structured error taxonomy for the composition
// engine. Resolution errors are recovered locally as placeholders, command
// and validation errors are returned to the invoking layer as structured
// results, and channel/persistence errors are surfaced without ever
// terminating the editing session.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeCommand     ErrorType = "command"
	ErrorTypeResolution  ErrorType = "resolution"
	ErrorTypeChannel     ErrorType = "channel"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeInternal    ErrorType = "internal"
)

// ComposerError is a structured error type with context.
type ComposerError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *ComposerError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *ComposerError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *ComposerError) Is(target error) bool {
	var t *ComposerError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context information to the error.
func (e *ComposerError) WithContext(key string, value any) *ComposerError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewCommandError creates a command error for structurally invalid input.
func NewCommandError(code, message string) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeCommand,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewResolutionError creates a resolution error (unknown block type,
// unreachable pattern).
func NewResolutionError(code, message string, cause error) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeResolution,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewChannelError creates a cross-frame channel error.
func NewChannelError(code, message string, cause error) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeChannel,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewPersistenceError creates a persistence error. The in-memory draft is
// never discarded on a failed save, so these are always recoverable.
func NewPersistenceError(code, message string, cause error) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypePersistence,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ComposerError {
	return &ComposerError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ce *ComposerError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}
	return false
}

// IsResolutionError checks if an error is resolution-related.
func IsResolutionError(err error) bool {
	var ce *ComposerError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeResolution
	}
	return false
}

// IsPersistenceError checks if an error is persistence-related.
func IsPersistenceError(err error) bool {
	var ce *ComposerError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypePersistence
	}
	return false
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
}

// Common error codes.
const (
	ErrCodeInvalidReorder     = "ERR_INVALID_REORDER"
	ErrCodeUnknownBlockType   = "ERR_UNKNOWN_BLOCK_TYPE"
	ErrCodePatternUnavailable = "ERR_PATTERN_UNAVAILABLE"
	ErrCodePatternNotFound    = "ERR_PATTERN_NOT_FOUND"
	ErrCodeInvalidOrigin      = "ERR_INVALID_ORIGIN"
	ErrCodeChannelClosed      = "ERR_CHANNEL_CLOSED"
	ErrCodeSaveFailed         = "ERR_SAVE_FAILED"
	ErrCodeLoadFailed         = "ERR_LOAD_FAILED"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeValidationFailed   = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError      = "ERR_INTERNAL"
)

// Helper constructors for common errors

// ErrInvalidReorder creates the rejected result for a structurally invalid
// reorder payload (unknown ids in the requested sequence).
func ErrInvalidReorder(unknownIDs []string) *ComposerError {
	return NewCommandError(
		ErrCodeInvalidReorder,
		"reorder sequence contains unknown ids: "+strings.Join(unknownIDs, ", "),
	).WithContext("unknown_ids", unknownIDs)
}

// ErrUnknownBlockType creates an unresolvable block type error.
func ErrUnknownBlockType(blockType string) *ComposerError {
	return NewResolutionError(
		ErrCodeUnknownBlockType,
		"block type not registered: "+blockType,
		nil,
	).WithContext("block_type", blockType)
}

// ErrPatternUnavailable creates the resolver's unavailable state. The
// preview must render a distinct error affordance for this, never an empty
// tree.
func ErrPatternUnavailable(patternID string, cause error) *ComposerError {
	return NewResolutionError(
		ErrCodePatternUnavailable,
		"pattern unavailable: "+patternID,
		cause,
	).WithContext("pattern_id", patternID)
}

// ErrInvalidOrigin creates an invalid origin channel error.
func ErrInvalidOrigin(origin string) *ComposerError {
	return NewChannelError(ErrCodeInvalidOrigin, "invalid origin: "+origin, nil)
}
