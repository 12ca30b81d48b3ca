package http1

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a request failure. Every kind maps to exactly one status code.
type ErrorKind int

const (
	// KindNotFound: the requested file is not part of the media directory listing.
	KindNotFound ErrorKind = iota
	// KindClientError: malformed or unsupported request.
	KindClientError
	// KindServerError: I/O or internal failure.
	KindServerError
	// KindInvalidContentRange: the requested byte range cannot be satisfied.
	KindInvalidContentRange
	// KindInvalidMethod: any method other than GET.
	KindInvalidMethod
)

// statusByKind is the only place error kinds are translated into status codes.
var statusByKind = map[ErrorKind]int{
	KindClientError:         http.StatusBadRequest,
	KindInvalidMethod:       http.StatusMethodNotAllowed,
	KindNotFound:            http.StatusNotFound,
	KindInvalidContentRange: http.StatusRequestedRangeNotSatisfiable,
	KindServerError:         http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for the kind.
func (k ErrorKind) StatusCode() int {
	if code, ok := statusByKind[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindClientError:
		return "CLIENT_ERROR"
	case KindServerError:
		return "SERVER_ERROR"
	case KindInvalidContentRange:
		return "INVALID_CONTENT_RANGE"
	case KindInvalidMethod:
		return "INVALID_METHOD"
	default:
		return fmt.Sprintf("UNKNOWN_ERROR_KIND_%d", int(k))
	}
}

// Error is a typed request failure. Detail and Cause are meant for server-side logs
// and are never rendered to the client.
type Error struct {
	Kind   ErrorKind
	Detail string
	Cause  error // Optional underlying cause

	// ResourceLength is the size of the addressed resource for KindInvalidContentRange,
	// or -1 when unknown.
	ResourceLength int64
}

// Error returns a string representation of the Error.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status code the error maps to.
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

// NewNotFoundError creates a KindNotFound error.
func NewNotFoundError(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail, ResourceLength: -1}
}

// NewClientError creates a KindClientError error with a formatted detail message.
func NewClientError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindClientError, Detail: fmt.Sprintf(format, args...), ResourceLength: -1}
}

// NewClientErrorWithCause creates a KindClientError error wrapping cause.
func NewClientErrorWithCause(detail string, cause error) *Error {
	return &Error{Kind: KindClientError, Detail: detail, Cause: cause, ResourceLength: -1}
}

// NewServerError creates a KindServerError error wrapping cause.
func NewServerError(detail string, cause error) *Error {
	return &Error{Kind: KindServerError, Detail: detail, Cause: cause, ResourceLength: -1}
}

// NewInvalidContentRangeError creates a KindInvalidContentRange error for a resource
// of the given length (-1 if unknown).
func NewInvalidContentRangeError(r ByteRange, length int64) *Error {
	return &Error{
		Kind:           KindInvalidContentRange,
		Detail:         fmt.Sprintf("range %s not satisfiable for length %d", r, length),
		ResourceLength: length,
	}
}

// NewInvalidMethodError creates a KindInvalidMethod error.
func NewInvalidMethodError(method string) *Error {
	return &Error{Kind: KindInvalidMethod, Detail: fmt.Sprintf("method %q not allowed", method), ResourceLength: -1}
}

// AsError extracts an *Error from err. Errors of any other type are reported as
// KindServerError wrapping err.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewServerError("unclassified failure", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
