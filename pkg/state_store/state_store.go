package state_store

import (
	"bytes"
	"context"
)

type KeyValue struct {
	Key   []byte
	Value []byte
}

// StateStore is the key value contract stateful executors persist into.
// Scan returns entries in ascending key order and IngestBatch applies a
// whole batch or nothing.
type StateStore interface {
	Name() string
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Scan(ctx context.Context, prefix []byte) ([]KeyValue, error)
	IngestBatch(ctx context.Context, batch *WriteBatch) error
	Close() error
}

type BatchEntry struct {
	Key []byte
	// Value is nil for a tombstone.
	Value []byte
}

func (e BatchEntry) IsDelete() bool {
	return e.Value == nil
}

// WriteBatch collects puts and tombstones for one IngestBatch call. A later
// entry for the same key overrides an earlier one.
type WriteBatch struct {
	entries []BatchEntry
}

func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

func (b *WriteBatch) Put(key []byte, value []byte) {
	if value == nil {
		value = []byte{}
	}
	b.entries = append(b.entries, BatchEntry{Key: key, Value: value})
}

func (b *WriteBatch) Delete(key []byte) {
	b.entries = append(b.entries, BatchEntry{Key: key})
}

func (b *WriteBatch) Len() int {
	return len(b.entries)
}

func (b *WriteBatch) IsEmpty() bool {
	return len(b.entries) == 0
}

func (b *WriteBatch) Entries() []BatchEntry {
	return b.entries
}

func hasPrefix(key []byte, prefix []byte) bool {
	return bytes.HasPrefix(key, prefix)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
