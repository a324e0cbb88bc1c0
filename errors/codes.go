package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction-time errors. Raised while a stage is being built, never
// deferred into iteration.
const (
	// ErrCodeTypeResolution indicates a member access has no known result type.
	ErrCodeTypeResolution ErrorCode = "TYPE_RESOLUTION"
	// ErrCodeTypeCombination indicates a binary operator has no rule for its operand types.
	ErrCodeTypeCombination ErrorCode = "TYPE_COMBINATION"
	// ErrCodeUnsupportedElementType indicates an operation does not accept the declared element type.
	ErrCodeUnsupportedElementType ErrorCode = "UNSUPPORTED_ELEMENT_TYPE"
	// ErrCodeInvalidExpression indicates an expression could not be bound.
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	// ErrCodeInvalidInput indicates an argument is out of range or malformed.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Runtime errors
const (
	// ErrCodeSourceRead indicates the underlying source failed while being pulled.
	ErrCodeSourceRead ErrorCode = "SOURCE_READ"
	// ErrCodeSinkWrite indicates a terminal failed to write its output.
	ErrCodeSinkWrite ErrorCode = "SINK_WRITE"
	// ErrCodeUploadFailed indicates an object-store upload did not complete.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// ErrCodeNotFound indicates the requested object or entry does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeEvaluation indicates a per-element evaluation failed.
	ErrCodeEvaluation ErrorCode = "EVALUATION"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSourceRead:   true,
	ErrCodeUploadFailed: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
