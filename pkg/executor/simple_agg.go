package executor

import (
	"context"
	"fmt"

	"streamsql/pkg/aggregation"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/state_store"
	"streamsql/pkg/stats"
)

// SimpleAggExecutor aggregates the whole input into a single row.
type SimpleAggExecutor struct {
	baseExecutor
	calls            []aggregation.AggCall
	ks               *state_store.Keyspace
	state            *aggregation.AggState
	extremeCacheSize int
}

var _ = StatefulExecutor(&SimpleAggExecutor{})

// NewSimpleAggExecutor builds a global aggregation over input. calls[0]
// must be row_count.
func NewSimpleAggExecutor(input Executor, calls []aggregation.AggCall, ks *state_store.Keyspace,
	pkIndices commtypes.PkIndices, executorID uint64, extremeCacheSize int,
) (*StatefulExecutorWrapper, error) {
	if err := aggregation.ValidateAggCalls(calls, input.Schema()); err != nil {
		return nil, err
	}
	e := &SimpleAggExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    aggregation.GenerateAggSchema(input.Schema(), calls, nil),
			PkIndices: pkIndices,
			Identity:  fmt.Sprintf("SimpleAggExecutor %X", executorID),
		}},
		calls:            calls,
		ks:               ks,
		extremeCacheSize: extremeCacheSize,
	}
	return NewStatefulExecutorWrapper(input, e), nil
}

func (e *SimpleAggExecutor) ApplyChunk(ctx context.Context, chunk *commtypes.StreamChunk) error {
	if e.state == nil {
		st, err := aggregation.NewAggState(ctx, nil, e.calls, e.ks, e.extremeCacheSize)
		if err != nil {
			return err
		}
		e.state = st
	}
	if err := e.state.MayMarkAsDirty(ctx); err != nil {
		return err
	}
	return e.state.ApplyBatch(ctx, chunk.Ops(), chunk.Visibility(), aggregation.AggInputArrays(chunk, e.calls))
}

func (e *SimpleAggExecutor) FlushData(ctx context.Context) (*commtypes.StreamChunk, error) {
	if e.state == nil || !e.state.IsDirty() {
		return nil, nil
	}
	builders := e.Schema().CreateArrayBuilders(2)
	var ops []commtypes.Op
	if _, err := e.state.BuildChanges(ctx, builders, &ops); err != nil {
		return nil, err
	}
	wb := state_store.NewWriteBatch()
	if err := e.state.Flush(ctx, wb); err != nil {
		return nil, err
	}
	if err := e.ks.IngestBatch(ctx, wb); err != nil {
		return nil, err
	}
	stats.StateFlushEntries.WithLabelValues(e.ks.Store().Name()).Add(float64(wb.Len()))
	return finishChunk(ops, builders)
}

func finishChunk(ops []commtypes.Op, builders []commtypes.ArrayBuilder) (*commtypes.StreamChunk, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	cols := make([]commtypes.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	return commtypes.NewStreamChunk(ops, cols, nil)
}
