package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/koustreak/priam/internal/errs"
)

// mapError converts a gocql error into a priam *errs.Error.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var perr *errs.Error
	if errors.As(err, &perr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, gocql.ErrTimeoutNoResponse):
		return errs.Wrap(errs.ErrKindTimeout, "request timed out", err)
	case errors.Is(err, gocql.ErrSessionClosed):
		return errs.Wrap(errs.ErrKindClosed, "session is closed", err)
	case errors.Is(err, gocql.ErrNoConnections), errors.Is(err, gocql.ErrNoConnectionsStarted),
		errors.Is(err, gocql.ErrNoHosts):
		return errs.Wrap(errs.ErrKindConnectionFailed, "no connection to the cluster", err)
	case errors.Is(err, gocql.ErrNotFound):
		return errs.Wrap(errs.ErrKindNotFound, "not found", err)
	}

	var readTimeout *gocql.RequestErrReadTimeout
	var writeTimeout *gocql.RequestErrWriteTimeout
	if errors.As(err, &readTimeout) || errors.As(err, &writeTimeout) {
		return errs.Wrap(errs.ErrKindTimeout, "coordinator timed out", err)
	}

	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeCredentials, gocql.ErrCodeUnauthorized:
			return errs.Wrap(errs.ErrKindPermissionDenied, reqErr.Message(), err)
		case gocql.ErrCodeSyntax, gocql.ErrCodeInvalid, gocql.ErrCodeAlreadyExists:
			return errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("query error: %s", reqErr.Message()), err)
		case gocql.ErrCodeUnavailable, gocql.ErrCodeOverloaded, gocql.ErrCodeBootstrapping:
			return errs.Wrap(errs.ErrKindConnectionFailed, reqErr.Message(), err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, reqErr.Message(), err)
	}

	return errs.Wrap(errs.ErrKindUnknown, err.Error(), err)
}

// connectError wraps a failed Connect. The result is always a
// ConnectionFailed (or Timeout) error carrying whatever per-host errors the
// client exposed as Inner.
func connectError(err error) error {
	mapped := mapError(err)
	var e *errs.Error
	if !errors.As(mapped, &e) || (e.Kind != errs.ErrKindConnectionFailed && e.Kind != errs.ErrKindTimeout) {
		e = errs.Wrap(errs.ErrKindConnectionFailed, "unable to connect to the cluster", err)
	}
	if len(e.Inner) == 0 {
		e.WithInner(innerErrors(err)...)
	}
	return e
}

// innerErrors returns the leaves of a joined error, or nil.
func innerErrors(err error) []error {
	for err != nil {
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			return j.Unwrap()
		}
		err = errors.Unwrap(err)
	}
	return nil
}

func poolNilError() error {
	return errs.New(errs.ErrKindInvalidInput, "connection pool is nil")
}
