// Package errors provides the structured error taxonomy shared by every
// streamkit package.
//
// Construction-time failures (type resolution, unsupported element types,
// malformed expressions) and fatal source failures are all *AppError values
// carrying a machine-readable ErrorCode, so callers can branch with IsCode
// instead of matching message text:
//
//	_, err := s.ToList(ctx)
//	if errors.IsCode(err, errors.ErrCodeSourceRead) {
//	    // the underlying reader failed; the cause is attached
//	}
package errors
