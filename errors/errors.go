package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified streamkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// TypeResolution reports that member has no known result type on typeName.
func TypeResolution(typeName, member string) *AppError {
	return &AppError{
		Code:    ErrCodeTypeResolution,
		Message: fmt.Sprintf("no known result type for %s.%s", typeName, member),
		Details: map[string]any{"type": typeName, "member": member},
	}
}

// TypeCombination reports that op has no rule for the two operand types.
func TypeCombination(op, left, right string) *AppError {
	return &AppError{
		Code:    ErrCodeTypeCombination,
		Message: fmt.Sprintf("cannot combine %s %s %s", left, op, right),
		Details: map[string]any{"op": op, "left": left, "right": right},
	}
}

// UnsupportedElementType reports that operation does not accept elements of typeName.
func UnsupportedElementType(operation, typeName string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedElementType,
		Message: fmt.Sprintf("%s does not support elements of type %s", operation, typeName),
		Details: map[string]any{"operation": operation, "type": typeName},
	}
}

// InvalidExpression reports an expression that cannot be bound.
func InvalidExpression(desc, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidExpression,
		Message: fmt.Sprintf("invalid expression %s: %s", desc, reason),
		Details: map[string]any{"expression": desc},
	}
}

// InvalidInput creates a new AppError for an invalid argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for failed struct validation.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// SourceRead wraps a failure of the underlying source.
func SourceRead(source string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeSourceRead,
		Message:   fmt.Sprintf("reading %s failed", source),
		Retryable: true,
		Details:   map[string]any{"source": source},
		Cause:     cause,
	}
}

// SinkWrite wraps a failure while writing terminal output.
func SinkWrite(sink string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSinkWrite,
		Message: fmt.Sprintf("writing %s failed", sink),
		Details: map[string]any{"sink": sink},
		Cause:   cause,
	}
}

// UploadFailed wraps an object-store upload failure.
func UploadFailed(key string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeUploadFailed,
		Message:   fmt.Sprintf("upload of %s failed", key),
		Retryable: true,
		Details:   map[string]any{"key": key},
		Cause:     cause,
	}
}

// NotFound creates a new AppError for a missing object or entry.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("the requested %s was not found", resource),
		Details: details,
	}
}

// Evaluation wraps a per-element evaluation failure.
func Evaluation(desc string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeEvaluation,
		Message: fmt.Sprintf("evaluating %s failed", desc),
		Details: map[string]any{"expression": desc},
		Cause:   cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Is delegates to the standard library so callers need only one errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As delegates to the standard library so callers need only one errors import.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join delegates to the standard library so callers need only one errors import.
func Join(errs ...error) error { return stderrors.Join(errs...) }
