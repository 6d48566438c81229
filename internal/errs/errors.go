// Package errs provides the unified error type used across all of priam.
//
// Every subsystem (configuration, pool lifecycle, query execution, …) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing gocql.
//
// Usage:
//
//	// In the driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindQueryFailed, "execute failed", gocqlErr)
//
//	// In a caller, check the error kind:
//	if errs.IsConfiguration(err) {
//	    log.Fatalf("bad cluster config: %v", err)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing client-specific codes.
// gocql errors are mapped to one of these kinds, giving callers a single
// consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no table, no keyspace
	ErrKindConnectionFailed         // cannot reach or open the cluster
	ErrKindTimeout                  // context deadline / client timeout
	ErrKindQueryFailed              // CQL execution error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindConfiguration            // malformed cluster configuration
	ErrKindClosed                   // pool already shut down
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConfiguration:
		return "configuration"
	case ErrKindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all priam subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error   // original client-level error, preserved for logging
	Inner   []error // per-host errors reported by the client, if any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithInner attaches inner errors and returns e.
func (e *Error) WithInner(inner ...error) *Error {
	e.Inner = append(e.Inner, inner...)
	return e
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a CQL execution failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsConfiguration reports whether err comes from a malformed configuration.
func IsConfiguration(err error) bool {
	return kindOf(err) == ErrKindConfiguration
}

// IsClosed reports whether err was returned because a pool is shut down.
func IsClosed(err error) bool {
	return kindOf(err) == ErrKindClosed
}

// Name returns the kind name of err ("unknown" for foreign errors).
func Name(err error) string {
	return kindOf(err).String()
}

// InnerOf returns the inner errors attached anywhere in err's chain.
func InnerOf(err error) []error {
	var e *Error
	if errors.As(err, &e) {
		return e.Inner
	}
	return nil
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
