// Package apperr provides the tagged error type shared by every layer of the
// store. Business errors carry a kind and a machine-readable code; the HTTP
// boundary maps kinds to status codes through a fixed table.
package apperr

import "net/http"

// Kind classifies an error into one of the store's failure categories.
type Kind int

const (
	// KindUnknown covers unclassified failures. Detail is suppressed at
	// the boundary.
	KindUnknown Kind = iota
	// KindNotFound means the entity, version, or history is absent.
	KindNotFound
	// KindConflict means a uniqueness violation: duplicate email on
	// signup, or two mutations racing for the same version number.
	KindConflict
	// KindAuthentication means a bad credential or a missing/invalid token.
	KindAuthentication
	// KindValidation means malformed input.
	KindValidation
	// KindStorage means the underlying database is unreachable or failed
	// in a way the store does not otherwise classify.
	KindStorage
)

// Machine-readable codes surfaced in the error response body.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeDatabase       = "DATABASE_ERROR"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

// Error is the domain error type. Message is safe to surface for business
// kinds; for KindStorage and KindUnknown the boundary replaces it with a
// generic message and logs the wrapped cause instead.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// NotFound builds an entity/version/history-absent error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// Conflict builds a uniqueness-violation error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// Authentication builds a credential failure error.
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Code: CodeAuthentication, Message: message}
}

// Validation builds a malformed-input error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// Storage wraps a database failure. The cause is kept for logs only.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Code: CodeDatabase, Message: message, Err: cause}
}

// HTTPStatus maps a kind to its transport status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrStorage        = &Error{Kind: KindStorage}
)
