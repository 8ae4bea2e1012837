package aggregation

import (
	"context"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/state_store"
)

// ManagedState is the persisted state of one aggregate call for one group.
type ManagedState interface {
	ApplyBatch(ctx context.Context, ops []commtypes.Op, visibility *commtypes.Bitmap, data []commtypes.Array) error
	GetOutput(ctx context.Context) (commtypes.Datum, error)
	IsDirty() bool
	// Flush appends the pending changes to wb. With purge set every entry
	// of the state is deleted instead.
	Flush(ctx context.Context, wb *state_store.WriteBatch, purge bool) error
}

func checkBatch(ops []commtypes.Op, visibility *commtypes.Bitmap, data []commtypes.Array) error {
	if visibility != nil && visibility.Len() != len(ops) {
		return common_errors.SchemaViolation("visibility has %d bits, batch has %d ops", visibility.Len(), len(ops))
	}
	for i, arr := range data {
		if arr.Len() != len(ops) {
			return common_errors.SchemaViolation("input array %d has %d rows, batch has %d ops", i, arr.Len(), len(ops))
		}
	}
	return nil
}

func argAt(data []commtypes.Array, i int) commtypes.Datum {
	if len(data) == 0 {
		return nil
	}
	return data[0].Datum(i)
}

// ManagedValueState keeps a scalar aggregate under a single key.
type ManagedValueState struct {
	agg     streamingAgg
	key     []byte
	isDirty bool
	ks      *state_store.Keyspace
}

var _ = ManagedState(&ManagedValueState{})

// NewManagedValueState restores the state stored under key, a missing key
// is an empty aggregate.
func NewManagedValueState(ctx context.Context, call AggCall, ks *state_store.Keyspace, key []byte) (*ManagedValueState, error) {
	agg, err := newStreamingAgg(call)
	if err != nil {
		return nil, err
	}
	raw, ok, err := ks.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := agg.decode(raw); err != nil {
			return nil, err
		}
	}
	return &ManagedValueState{agg: agg, key: key, ks: ks}, nil
}

func (s *ManagedValueState) ApplyBatch(ctx context.Context, ops []commtypes.Op, visibility *commtypes.Bitmap, data []commtypes.Array) error {
	if err := checkBatch(ops, visibility, data); err != nil {
		return err
	}
	for i, op := range ops {
		if visibility != nil && !visibility.IsSet(i) {
			continue
		}
		if err := s.agg.apply(op.Sign(), argAt(data, i)); err != nil {
			return err
		}
		s.isDirty = true
	}
	return nil
}

func (s *ManagedValueState) GetOutput(ctx context.Context) (commtypes.Datum, error) {
	return s.agg.output(), nil
}

func (s *ManagedValueState) IsDirty() bool {
	return s.isDirty
}

func (s *ManagedValueState) Flush(ctx context.Context, wb *state_store.WriteBatch, purge bool) error {
	if purge {
		wb.Delete(s.ks.Key(s.key))
		s.isDirty = false
		return nil
	}
	if !s.isDirty {
		return nil
	}
	wb.Put(s.ks.Key(s.key), s.agg.encode())
	s.isDirty = false
	return nil
}
