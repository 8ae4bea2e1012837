package aggregation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/state_store"
)

func nullableI64(vals ...commtypes.Datum) commtypes.Array {
	arr, err := commtypes.ArrayFromDatums(commtypes.Int64Type(true), vals)
	if err != nil {
		panic(err)
	}
	return arr
}

func opsOf(n int, op commtypes.Op) []commtypes.Op {
	ops := make([]commtypes.Op, n)
	for i := range ops {
		ops[i] = op
	}
	return ops
}

func TestValueStatesIgnoreNulls(t *testing.T) {
	ctx := context.Background()
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("v"), 1)
	t64 := commtypes.Int64Type(true)
	count, err := NewManagedValueState(ctx, Count(0, t64), ks, []byte{0})
	require.NoError(t, err)
	sum, err := NewManagedValueState(ctx, Sum(0, t64), ks, []byte{1})
	require.NoError(t, err)

	data := []commtypes.Array{nullableI64(nil, int64(4), nil)}
	require.NoError(t, count.ApplyBatch(ctx, opsOf(3, ins), nil, data))
	require.NoError(t, sum.ApplyBatch(ctx, opsOf(3, ins), nil, data))
	out, _ := count.GetOutput(ctx)
	assert.Equal(t, int64(1), out)
	out, _ = sum.GetOutput(ctx)
	assert.Equal(t, int64(4), out)

	require.NoError(t, sum.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{nullableI64(int64(4))}))
	out, _ = sum.GetOutput(ctx)
	assert.Nil(t, out)
}

func TestSumOverflowIsEvalError(t *testing.T) {
	ctx := context.Background()
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("v"), 1)
	sum, err := NewManagedValueState(ctx, Sum(0, i64), ks, []byte{1})
	require.NoError(t, err)
	err = sum.ApplyBatch(ctx, opsOf(2, ins), nil, []commtypes.Array{commtypes.NewI64Array(math.MaxInt64, 1)})
	assert.True(t, common_errors.IsEvalError(err))
}

func TestFloatSum(t *testing.T) {
	ctx := context.Background()
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("v"), 1)
	f64 := commtypes.Float64Type(false)
	sum, err := NewManagedValueState(ctx, Sum(0, f64), ks, []byte{1})
	require.NoError(t, err)
	require.NoError(t, sum.ApplyBatch(ctx, opsOf(2, ins), nil, []commtypes.Array{commtypes.NewF64Array(1.5, 2.25)}))
	out, _ := sum.GetOutput(ctx)
	assert.Equal(t, 3.75, out)

	wb := state_store.NewWriteBatch()
	require.NoError(t, sum.Flush(ctx, wb, false))
	require.NoError(t, ks.IngestBatch(ctx, wb))
	restored, err := NewManagedValueState(ctx, Sum(0, f64), ks, []byte{1})
	require.NoError(t, err)
	out, _ = restored.GetOutput(ctx)
	assert.Equal(t, 3.75, out)
}

func flushExtreme(t *testing.T, s *ManagedExtremeState, ks *state_store.Keyspace) {
	t.Helper()
	ctx := context.Background()
	wb := state_store.NewWriteBatch()
	require.NoError(t, s.Flush(ctx, wb, false))
	require.NoError(t, ks.IngestBatch(ctx, wb))
}

func TestExtremeStateRetractsDuplicates(t *testing.T) {
	ctx := context.Background()
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("e"), 1).Sub([]byte{0, 3})
	s, err := NewManagedExtremeState(Min(0, i64), ks, 4)
	require.NoError(t, err)

	require.NoError(t, s.ApplyBatch(ctx, opsOf(3, ins), nil, []commtypes.Array{commtypes.NewI64Array(5, 2, 2)}))
	out, err := s.GetOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out)

	require.NoError(t, s.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{commtypes.NewI64Array(2)}))
	out, _ = s.GetOutput(ctx)
	assert.Equal(t, int64(2), out)
	require.NoError(t, s.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{commtypes.NewI64Array(2)}))
	out, _ = s.GetOutput(ctx)
	assert.Equal(t, int64(5), out)

	err = s.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{commtypes.NewI64Array(9)})
	assert.True(t, common_errors.IsSchemaViolation(err))
}

func TestExtremeStateReloadsWhenCacheDrains(t *testing.T) {
	ctx := context.Background()
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("e"), 1).Sub([]byte{0, 1})
	s, err := NewManagedExtremeState(Max(0, i64), ks, 2)
	require.NoError(t, err)

	require.NoError(t, s.ApplyBatch(ctx, opsOf(5, ins), nil, []commtypes.Array{commtypes.NewI64Array(1, 2, 3, 4, 5)}))
	flushExtreme(t, s, ks)
	assert.Equal(t, 2, s.cache.Len())
	assert.False(t, s.complete)

	// 3 is outside the cache and must be read from the store
	require.NoError(t, s.ApplyBatch(ctx, opsOf(1, ins), nil, []commtypes.Array{commtypes.NewI64Array(3)}))
	require.NoError(t, s.ApplyBatch(ctx, opsOf(2, del), nil, []commtypes.Array{commtypes.NewI64Array(5, 4)}))
	out, err := s.GetOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	require.NoError(t, s.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{commtypes.NewI64Array(3)}))
	out, _ = s.GetOutput(ctx)
	assert.Equal(t, int64(3), out)
	flushExtreme(t, s, ks)

	restored, err := NewManagedExtremeState(Max(0, i64), ks, 2)
	require.NoError(t, err)
	out, err = restored.GetOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
	require.NoError(t, restored.ApplyBatch(ctx, opsOf(2, del), nil, []commtypes.Array{commtypes.NewI64Array(3, 2)}))
	out, _ = restored.GetOutput(ctx)
	assert.Equal(t, int64(1), out)
}

func TestExtremeStateStrings(t *testing.T) {
	ctx := context.Background()
	vt := commtypes.VarcharType(false)
	ks := state_store.ExecutorKeyspace(state_store.NewMemoryStateStore("e"), 1)
	s, err := NewManagedExtremeState(Min(0, vt), ks, 1)
	require.NoError(t, err)
	require.NoError(t, s.ApplyBatch(ctx, opsOf(3, ins), nil, []commtypes.Array{commtypes.NewUtf8Array("pear", "apple", "fig")}))
	flushExtreme(t, s, ks)
	require.NoError(t, s.ApplyBatch(ctx, opsOf(1, del), nil, []commtypes.Array{commtypes.NewUtf8Array("apple")}))
	out, err := s.GetOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fig", out)
}
