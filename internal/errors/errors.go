package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind represents the category of a failure while talking to the GitHub API
type Kind int

const (
	// KindRequest - malformed or error-bearing response, or transport failure
	KindRequest Kind = iota
	// KindUnauthorized - invalid or expired credential, caller must re-authenticate
	KindUnauthorized
	// KindForbidden - credential lacks access to the organization
	KindForbidden
	// KindTimeout - retry budget exhausted on gateway errors
	KindTimeout
	// KindConfig - missing or invalid configuration
	KindConfig
)

// String returns the category printed by the CLI
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindTimeout:
		return "TIMEOUT"
	case KindConfig:
		return "CONFIG"
	default:
		return "UNKNOWN"
	}
}

// Error represents a classified failure with context
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Sentinels for errors.Is matching. Only Kind is compared.
var (
	ErrRequest      = &Error{Kind: KindRequest}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrConfig       = &Error{Kind: KindConfig}
)

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// DetailedString returns the category, message, cause and sorted context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Kind, e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	return sb.String()
}

// New creates a new error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a kind and message
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// Convenience constructors

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Forbidden creates a forbidden error carrying the upstream message
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Timeout creates a timeout error
func Timeout(message string) *Error {
	return New(KindTimeout, message)
}

// Request creates a generic request error carrying the raw message
func Request(message string) *Error {
	return New(KindRequest, message)
}

// RequestErrorf wraps a transport error with formatting
func RequestErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindRequest, fmt.Sprintf(format, args...))
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in the chain.
// Unclassified errors report KindRequest.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRequest
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
