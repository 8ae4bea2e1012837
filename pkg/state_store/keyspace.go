package state_store

import (
	"context"

	"streamsql/pkg/common_errors"
)

// Keyspace is a store handle plus a key prefix owned by a single executor.
type Keyspace struct {
	store  StateStore
	prefix []byte
}

func NewKeyspace(store StateStore, prefix []byte) *Keyspace {
	return &Keyspace{store: store, prefix: copyBytes(prefix)}
}

// ExecutorKeyspace derives the keyspace of the executor with the given id.
func ExecutorKeyspace(store StateStore, executorID uint32) *Keyspace {
	return NewKeyspace(store, []byte{
		'e', byte(executorID >> 24), byte(executorID >> 16), byte(executorID >> 8), byte(executorID),
	})
}

func (ks *Keyspace) Store() StateStore {
	return ks.store
}

func (ks *Keyspace) Prefix() []byte {
	return ks.prefix
}

// Key prepends the keyspace prefix to the concatenated parts.
func (ks *Keyspace) Key(parts ...[]byte) []byte {
	n := len(ks.prefix)
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, ks.prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// Sub returns a keyspace nested under this one.
func (ks *Keyspace) Sub(suffix []byte) *Keyspace {
	return &Keyspace{store: ks.store, prefix: ks.Key(suffix)}
}

func (ks *Keyspace) Get(ctx context.Context, suffix []byte) ([]byte, bool, error) {
	v, ok, err := ks.store.Get(ctx, ks.Key(suffix))
	if err != nil {
		return nil, false, common_errors.StateStoreError(err)
	}
	return v, ok, nil
}

// Scan returns all entries under prefix+suffix, keys include the prefix.
func (ks *Keyspace) Scan(ctx context.Context, suffix []byte) ([]KeyValue, error) {
	kvs, err := ks.store.Scan(ctx, ks.Key(suffix))
	if err != nil {
		return nil, common_errors.StateStoreError(err)
	}
	return kvs, nil
}

func (ks *Keyspace) IngestBatch(ctx context.Context, batch *WriteBatch) error {
	if batch.IsEmpty() {
		return nil
	}
	if err := ks.store.IngestBatch(ctx, batch); err != nil {
		return common_errors.StateStoreError(err)
	}
	return nil
}
