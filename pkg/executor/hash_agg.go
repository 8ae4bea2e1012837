package executor

import (
	"context"
	"fmt"

	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"

	"streamsql/pkg/aggregation"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/state_store"
	"streamsql/pkg/stats"
)

// HashAggExecutor aggregates per group key. Output rows carry the group key
// columns followed by the aggregate values and are emitted in group key
// order.
type HashAggExecutor struct {
	baseExecutor
	calls            []aggregation.AggCall
	groupKeyIndices  []int
	ks               *state_store.Keyspace
	extremeCacheSize int
	// groups maps the encoded group key to its state.
	groups *skipmap.StringMap[*aggregation.AggState]
	// dirty holds the encoded keys of groups changed since the last flush.
	dirty *skipset.StringSet
}

var _ = StatefulExecutor(&HashAggExecutor{})

// NewHashAggExecutor groups input by groupKeyIndices. The output primary
// key is the group key.
func NewHashAggExecutor(input Executor, calls []aggregation.AggCall, groupKeyIndices []int,
	ks *state_store.Keyspace, executorID uint64, extremeCacheSize int,
) (*StatefulExecutorWrapper, error) {
	if err := aggregation.ValidateAggCalls(calls, input.Schema()); err != nil {
		return nil, err
	}
	if err := input.Schema().CheckIndices(groupKeyIndices); err != nil {
		return nil, err
	}
	pk := make(commtypes.PkIndices, len(groupKeyIndices))
	for i := range pk {
		pk[i] = i
	}
	e := &HashAggExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    aggregation.GenerateAggSchema(input.Schema(), calls, groupKeyIndices),
			PkIndices: pk,
			Identity:  fmt.Sprintf("HashAggExecutor %X", executorID),
		}},
		calls:            calls,
		groupKeyIndices:  groupKeyIndices,
		ks:               ks,
		extremeCacheSize: extremeCacheSize,
		groups:           skipmap.NewString[*aggregation.AggState](),
		dirty:            skipset.NewString(),
	}
	return NewStatefulExecutorWrapper(input, e), nil
}

func (e *HashAggExecutor) getOrCreateGroup(ctx context.Context, key string, groupKey commtypes.Row) (*aggregation.AggState, error) {
	if st, ok := e.groups.Load(key); ok {
		return st, nil
	}
	st, err := aggregation.NewAggState(ctx, groupKey, e.calls, e.ks.Sub([]byte(key)), e.extremeCacheSize)
	if err != nil {
		return nil, err
	}
	e.groups.Store(key, st)
	return st, nil
}

func (e *HashAggExecutor) ApplyChunk(ctx context.Context, chunk *commtypes.StreamChunk) error {
	type groupRows struct {
		groupKey commtypes.Row
		vis      []bool
	}
	n := chunk.Capacity()
	var order []string
	byKey := make(map[string]*groupRows)
	for i := 0; i < n; i++ {
		if !chunk.IsVisible(i) {
			continue
		}
		groupKey := chunk.RowAt(i).Project(e.groupKeyIndices)
		key := string(commtypes.SerializeRow(groupKey))
		g, ok := byKey[key]
		if !ok {
			g = &groupRows{groupKey: groupKey, vis: make([]bool, n)}
			byKey[key] = g
			order = append(order, key)
		}
		g.vis[i] = true
	}
	inputs := aggregation.AggInputArrays(chunk, e.calls)
	for _, key := range order {
		g := byKey[key]
		st, err := e.getOrCreateGroup(ctx, key, g.groupKey)
		if err != nil {
			return err
		}
		if err := st.MayMarkAsDirty(ctx); err != nil {
			return err
		}
		if err := st.ApplyBatch(ctx, chunk.Ops(), commtypes.NewBitmap(g.vis), inputs); err != nil {
			return err
		}
		e.dirty.Add(key)
	}
	return nil
}

func (e *HashAggExecutor) FlushData(ctx context.Context) (*commtypes.StreamChunk, error) {
	if e.dirty.Len() == 0 {
		return nil, nil
	}
	builders := e.Schema().CreateArrayBuilders(2 * e.dirty.Len())
	var ops []commtypes.Op
	wb := state_store.NewWriteBatch()
	var err error
	var emptied []string
	e.dirty.Range(func(key string) bool {
		st, ok := e.groups.Load(key)
		if !ok {
			return true
		}
		if _, err = st.BuildChanges(ctx, builders, &ops); err != nil {
			return false
		}
		if err = st.Flush(ctx, wb); err != nil {
			return false
		}
		var rowCount int64
		if rowCount, err = st.RowCount(ctx); err != nil {
			return false
		}
		if rowCount == 0 {
			emptied = append(emptied, key)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := e.ks.IngestBatch(ctx, wb); err != nil {
		return nil, err
	}
	stats.StateFlushEntries.WithLabelValues(e.ks.Store().Name()).Add(float64(wb.Len()))
	for _, key := range emptied {
		e.groups.Delete(key)
	}
	e.dirty = skipset.NewString()
	return finishChunk(ops, builders)
}

// GroupCount is the number of non-empty groups held in memory.
func (e *HashAggExecutor) GroupCount() int {
	return e.groups.Len()
}
