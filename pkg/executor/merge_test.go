package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

func firstColumn(t *testing.T, msgs []commtypes.Message) []int64 {
	t.Helper()
	var out []int64
	for _, m := range msgs {
		require.True(t, m.IsChunk())
		for _, r := range m.Chunk().Rows() {
			out = append(out, r.Row[0].(int64))
		}
	}
	return out
}

func TestMergeAlignsBarriers(t *testing.T) {
	ins := []commtypes.Op{commtypes.INSERT}
	a := NewMockSource(twoI64Sch, nil)
	a.PushChunk(i64Chunk(t, ins, nil, []int64{1}, []int64{0}))
	a.PushBarrier(1, false)
	a.PushChunk(i64Chunk(t, ins, nil, []int64{2}, []int64{0}))
	a.PushBarrier(2, true)
	b := NewMockSource(twoI64Sch, nil)
	b.PushChunk(i64Chunk(t, ins, nil, []int64{11}, []int64{0}))
	b.PushBarrier(1, false)
	b.PushChunk(i64Chunk(t, ins, nil, []int64{12}, []int64{0}))
	b.PushBarrier(2, true)

	merge, err := NewMergeExecutor([]Executor{a, b}, 1)
	require.NoError(t, err)
	msgs := collect(t, merge)
	require.Len(t, msgs, 6)

	assert.ElementsMatch(t, []int64{1, 11}, firstColumn(t, msgs[:2]))
	require.True(t, msgs[2].IsBarrier())
	assert.Equal(t, uint64(1), msgs[2].Barrier().Epoch)
	assert.ElementsMatch(t, []int64{2, 12}, firstColumn(t, msgs[3:5]))
	assert.True(t, msgs[5].IsStop())

	_, err = merge.Next(context.Background())
	assert.True(t, common_errors.IsStreamStopped(err))
}

func TestMergeRejectsMisalignedEpochs(t *testing.T) {
	a := NewMockSource(twoI64Sch, nil)
	a.PushBarrier(1, false)
	b := NewMockSource(twoI64Sch, nil)
	b.PushBarrier(2, false)

	merge, err := NewMergeExecutor([]Executor{a, b}, 2)
	require.NoError(t, err)
	_, err = merge.Next(context.Background())
	var execErr *ExecutorError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, INVALID_BARRIER, execErr.Kind)
	assert.Equal(t, "MergeExecutor 2", execErr.Identity)
}

func TestMergeRequiresInputs(t *testing.T) {
	_, err := NewMergeExecutor(nil, 3)
	assert.True(t, common_errors.IsSchemaViolation(err))
}

func TestReceiverClosedChannel(t *testing.T) {
	ch := make(chan commtypes.Message, 1)
	ch <- commtypes.BarrierMessage(commtypes.NewBarrier(1))
	close(ch)
	recv := NewReceiverExecutor(twoI64Sch, nil, ch, 5)

	msg, err := recv.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, msg.IsBarrier())
	_, err = recv.Next(context.Background())
	assert.ErrorIs(t, err, common_errors.ErrChannelClosed)
	var execErr *ExecutorError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, CHANNEL_CLOSED, execErr.Kind)
}

func TestSourceEmitsPendingBarrierFirst(t *testing.T) {
	chunks := make(chan *commtypes.StreamChunk, 2)
	barriers := make(chan *commtypes.Barrier, 2)
	chunks <- i64Chunk(t, []commtypes.Op{commtypes.INSERT}, nil, []int64{1}, []int64{2})
	barriers <- commtypes.NewBarrier(1)
	src := NewSourceExecutor(twoI64Sch, nil, chunks, barriers, 6)
	ctx := context.Background()

	msg, err := src.Next(ctx)
	require.NoError(t, err)
	require.True(t, msg.IsBarrier())
	msg, err = src.Next(ctx)
	require.NoError(t, err)
	require.True(t, msg.IsChunk())

	close(chunks)
	barriers <- commtypes.NewStopBarrier(2)
	msg, err = src.Next(ctx)
	require.NoError(t, err)
	assert.True(t, msg.IsStop())
	_, err = src.Next(ctx)
	assert.True(t, common_errors.IsStreamStopped(err))
}

func TestSourceRejectsStaleBarrier(t *testing.T) {
	barriers := make(chan *commtypes.Barrier, 2)
	barriers <- commtypes.NewBarrier(3)
	barriers <- commtypes.NewBarrier(3)
	src := NewSourceExecutor(twoI64Sch, nil, nil, barriers, 7)
	_, err := src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, common_errors.ErrInvalidBarrier)
}
