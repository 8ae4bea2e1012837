//go:build stats
// +build stats

package stream_task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/commtypes"
	"streamsql/pkg/executor"
)

func TestBarrierManagerCountsCompletedEpochs(t *testing.T) {
	mgr := NewLocalBarrierManager()
	injectAndWait(t, mgr, commtypes.NewBarrier(1))
	injectAndWait(t, mgr, commtypes.NewStopBarrier(2))
	assert.Equal(t, uint64(2), mgr.CompletedEpochs())
}

func TestActorRecordsBarrierLatency(t *testing.T) {
	src := executor.NewMockSource(twoI64Sch, nil)
	src.PushChunk(i64Chunk(t, []commtypes.Op{commtypes.INSERT}, []int64{1}, []int64{2}))
	src.PushBarrier(1, true)
	sink := &collectingSink{}
	a := NewActor(1, src, NewSinkDispatcher(sink.consume), NewLocalBarrierManager())
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, uint64(1), a.Stats().Rows.GetCount())
	assert.Equal(t, uint64(1), a.Stats().Barriers.GetCount())
	assert.Greater(t, a.Stats().BarrierLatency(), time.Duration(0))
	assert.Len(t, sink.take(), 1)
}
