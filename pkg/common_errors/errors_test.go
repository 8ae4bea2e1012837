package common_errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

func TestErrorKinds(t *testing.T) {
	err := SchemaViolation("column %d has length %d, expected %d", 1, 3, 4)
	assert.True(t, IsSchemaViolation(err))
	assert.False(t, IsEvalError(err))
	assert.Contains(t, err.Error(), "column 1 has length 3")

	err = EvalError("overflow")
	assert.True(t, IsEvalError(err))

	err = InvalidBarrier("epoch %d after %d", 1, 2)
	assert.True(t, xerrors.Is(err, ErrInvalidBarrier))

	err = InvalidAggCall("first call must be row count")
	assert.True(t, xerrors.Is(err, ErrInvalidAggCall))
}

func TestStateStoreErrorKeepsCause(t *testing.T) {
	assert.Nil(t, StateStoreError(nil))

	base := xerrors.New("disk full")
	err := StateStoreError(base)
	assert.True(t, IsStateStoreError(err))
	assert.True(t, xerrors.Is(err, base))
	assert.Equal(t, err, StateStoreError(err))

	wrapped := xerrors.Errorf("flush: %w", err)
	assert.True(t, IsStateStoreError(wrapped))
	assert.True(t, xerrors.Is(wrapped, base))
}
