package state_store

import (
	"context"

	"streamsql/pkg/utils/syncutils"
)

// ChangelogStateStore forwards to an inner store and keeps every batch it
// ingested until TakeChangelog is called.
type ChangelogStateStore struct {
	StateStore
	mux     syncutils.Mutex
	pending []*WriteBatch
}

var _ = StateStore(&ChangelogStateStore{})

func NewChangelogStateStore(inner StateStore) *ChangelogStateStore {
	return &ChangelogStateStore{StateStore: inner}
}

func (st *ChangelogStateStore) IngestBatch(ctx context.Context, batch *WriteBatch) error {
	if err := st.StateStore.IngestBatch(ctx, batch); err != nil {
		return err
	}
	st.mux.Lock()
	st.pending = append(st.pending, batch)
	st.mux.Unlock()
	return nil
}

// TakeChangelog returns the batches ingested since the previous call,
// merged in ingest order.
func (st *ChangelogStateStore) TakeChangelog() *WriteBatch {
	st.mux.Lock()
	pending := st.pending
	st.pending = nil
	st.mux.Unlock()
	merged := NewWriteBatch()
	for _, b := range pending {
		merged.entries = append(merged.entries, b.entries...)
	}
	return merged
}
