package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		errType  ErrorType
	}{
		{"option kind", InvalidOptionKind("kind %q", "straddle"), ErrInvalidOptionKind, ErrorTypeInvalidOptionKind},
		{"position", InvalidPosition("position %d", 7), ErrInvalidPosition, ErrorTypeInvalidPosition},
		{"barrier", InvalidBarrierType("up-and-out"), ErrInvalidBarrierType, ErrorTypeInvalidBarrierType},
		{"grid", MismatchedGrid("230 vs 240"), ErrMismatchedGrid, ErrorTypeMismatchedGrid},
		{"domain", Domain("volatility must be positive"), ErrDomain, ErrorTypeDomain},
		{"argument", InvalidArgument("paths must be positive"), ErrInvalidArgument, ErrorTypeInvalidArgument},
		{"not found", NotFound("portfolio %s", "abc"), ErrNotFound, ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.errType, TypeOf(tt.err))
			assert.False(t, stderrors.Is(tt.err, ErrInternal))
		})
	}
}

func TestWrapKeepsType(t *testing.T) {
	base := InvalidPosition("position is neither long nor short")
	wrapped := Wrapf(base, "pricing %s", "opt-1")

	assert.True(t, Is(wrapped, ErrInvalidPosition))
	assert.Equal(t, ErrorTypeInvalidPosition, TypeOf(wrapped))
	assert.Equal(t, "pricing opt-1: position is neither long nor short", wrapped.Error())

	fmtWrapped := fmt.Errorf("outer: %w", wrapped)
	assert.True(t, stderrors.Is(fmtWrapped, ErrInvalidPosition))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
	assert.Nil(t, WithType(nil, ErrorTypeDomain))
}

func TestWithType(t *testing.T) {
	err := WithType(stderrors.New("boom"), ErrorTypeInternal)
	assert.True(t, Is(err, ErrInternal))

	retyped := WithType(Domain("bad spot"), ErrorTypeInvalidArgument)
	assert.True(t, Is(retyped, ErrInvalidArgument))
	assert.False(t, Is(retyped, ErrDomain))
}

func TestUntypedErrorsDoNotMatch(t *testing.T) {
	err := New("plain")
	assert.Equal(t, ErrorTypeUnknown, TypeOf(err))
	assert.False(t, Is(err, New("plain")))
	assert.Equal(t, "invalid_barrier_type", ErrorTypeInvalidBarrierType.String())
}
