package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrKindConfiguration, "bad port"),
			want: "[configuration] bad port",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindConnectionFailed, "connect failed", errors.New("no hosts")),
			want: "[connection_failed] connect failed: no hosts",
		},
		{
			name: "formatted",
			err:  Newf(ErrKindInvalidInput, "unknown hint %q", "geo"),
			want: `[invalid_input] unknown hint "geo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates_TraverseWrapping(t *testing.T) {
	base := Wrap(ErrKindTimeout, "execute timed out", context.DeadlineExceeded)
	wrapped := fmt.Errorf("query users: %w", base)

	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsQueryFailed(wrapped))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.Equal(t, "timeout", Name(wrapped))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind  ErrKind
		check func(error) bool
	}{
		{ErrKindNotFound, IsNotFound},
		{ErrKindConnectionFailed, IsConnectionFailed},
		{ErrKindQueryFailed, IsQueryFailed},
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindPermissionDenied, IsPermissionDenied},
		{ErrKindConfiguration, IsConfiguration},
		{ErrKindClosed, IsClosed},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.True(t, tt.check(New(tt.kind, "x")))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestInnerOf(t *testing.T) {
	a := errors.New("10.0.0.1: refused")
	b := errors.New("10.0.0.2: timeout")
	err := Wrap(ErrKindConnectionFailed, "pool connect", errors.New("all hosts down")).WithInner(a, b)

	assert.Equal(t, []error{a, b}, InnerOf(fmt.Errorf("outer: %w", err)))
	assert.Nil(t, InnerOf(errors.New("plain")))
	assert.Equal(t, "unknown", Name(errors.New("plain")))
}
