package aggregation

import (
	"context"

	"streamsql/pkg/commtypes"
	"streamsql/pkg/debug"
	"streamsql/pkg/state_store"
)

// AggState holds the managed states of every aggregate call for one group.
// states[0] is always row_count.
type AggState struct {
	groupKey commtypes.Row
	states   []ManagedState
	// prevOutputs is the output observed before the first change of the
	// current dirty cycle, nil until MayMarkAsDirty is called.
	prevOutputs commtypes.Row
}

func stateSuffix(idx int) []byte {
	return []byte{byte(idx >> 8), byte(idx)}
}

// NewAggState restores the group's states from ks, the group key is already
// part of the key prefix.
func NewAggState(ctx context.Context, groupKey commtypes.Row, calls []AggCall,
	ks *state_store.Keyspace, extremeCacheSize int,
) (*AggState, error) {
	states := make([]ManagedState, len(calls))
	for i, call := range calls {
		var err error
		if call.IsExtreme() {
			states[i], err = NewManagedExtremeState(call, ks.Sub(stateSuffix(i)), extremeCacheSize)
		} else {
			states[i], err = NewManagedValueState(ctx, call, ks, stateSuffix(i))
		}
		if err != nil {
			return nil, err
		}
	}
	return &AggState{groupKey: groupKey, states: states}, nil
}

func (s *AggState) GroupKey() commtypes.Row {
	return s.groupKey
}

// RowCount is the number of rows currently in the group.
func (s *AggState) RowCount(ctx context.Context) (int64, error) {
	d, err := s.states[0].GetOutput(ctx)
	if err != nil {
		return 0, err
	}
	return d.(int64), nil
}

func (s *AggState) outputs(ctx context.Context) (commtypes.Row, error) {
	out := make(commtypes.Row, len(s.states))
	for i, st := range s.states {
		d, err := st.GetOutput(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// MayMarkAsDirty snapshots the current outputs the first time it is
// called in a dirty cycle. Later calls before the next flush are no-ops.
func (s *AggState) MayMarkAsDirty(ctx context.Context) error {
	if s.prevOutputs != nil {
		return nil
	}
	prev, err := s.outputs(ctx)
	if err != nil {
		return err
	}
	s.prevOutputs = prev
	return nil
}

// ApplyBatch folds one chunk into every call. inputs[i] are the argument
// columns of call i.
func (s *AggState) ApplyBatch(ctx context.Context, ops []commtypes.Op, visibility *commtypes.Bitmap,
	inputs [][]commtypes.Array,
) error {
	debug.Assert(len(inputs) == len(s.states), "one input per aggregate call")
	if err := s.MayMarkAsDirty(ctx); err != nil {
		return err
	}
	for i, st := range s.states {
		if err := st.ApplyBatch(ctx, ops, visibility, inputs[i]); err != nil {
			return err
		}
	}
	return nil
}

// IsDirty reports whether there are changes not yet flushed.
func (s *AggState) IsDirty() bool {
	for _, st := range s.states {
		if st.IsDirty() {
			return true
		}
	}
	return false
}

// BuildChanges appends the rows describing how the group's output moved
// since MayMarkAsDirty and returns how many rows were appended. Group key
// columns come first when the group key is not empty.
func (s *AggState) BuildChanges(ctx context.Context, builders []commtypes.ArrayBuilder, ops *[]commtypes.Op) (int, error) {
	if s.prevOutputs == nil || !s.IsDirty() {
		return 0, nil
	}
	cur, err := s.outputs(ctx)
	if err != nil {
		return 0, err
	}
	prev := s.prevOutputs
	prevRowCount, curRowCount := prev[0].(int64), cur[0].(int64)
	appendRow := func(op commtypes.Op, outputs commtypes.Row) error {
		col := 0
		for _, d := range s.groupKey {
			if err := builders[col].Append(d); err != nil {
				return err
			}
			col++
		}
		for _, d := range outputs {
			if err := builders[col].Append(d); err != nil {
				return err
			}
			col++
		}
		*ops = append(*ops, op)
		return nil
	}
	switch {
	case prevRowCount == 0 && curRowCount == 0:
		return 0, nil
	case prevRowCount == 0:
		return 1, appendRow(commtypes.INSERT, cur)
	case curRowCount == 0:
		return 1, appendRow(commtypes.DELETE, prev)
	case prev.Equal(cur):
		return 0, nil
	default:
		if err := appendRow(commtypes.UPDATE_DELETE, prev); err != nil {
			return 0, err
		}
		return 2, appendRow(commtypes.UPDATE_INSERT, cur)
	}
}

// Flush writes the pending changes into wb and ends the dirty cycle. A
// group left without rows has its entries deleted.
func (s *AggState) Flush(ctx context.Context, wb *state_store.WriteBatch) error {
	rowCount, err := s.RowCount(ctx)
	if err != nil {
		return err
	}
	purge := rowCount == 0
	for _, st := range s.states {
		if err := st.Flush(ctx, wb, purge); err != nil {
			return err
		}
	}
	s.prevOutputs = nil
	return nil
}
