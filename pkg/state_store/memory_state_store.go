package state_store

import (
	"bytes"
	"context"

	"github.com/google/btree"

	"streamsql/pkg/utils/syncutils"
)

type kvPair struct {
	key []byte
	val []byte
}

func kvPairLess(a, b kvPair) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemoryStateStore keeps all entries in a btree ordered by key.
type MemoryStateStore struct {
	mux   syncutils.Mutex
	store *btree.BTreeG[kvPair]
	name  string
}

var _ = StateStore(&MemoryStateStore{})

func NewMemoryStateStore(name string) *MemoryStateStore {
	return &MemoryStateStore{
		name:  name,
		store: btree.NewG(2, kvPairLess),
	}
}

func (st *MemoryStateStore) Name() string {
	return st.name
}

func (st *MemoryStateStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	ret, exists := st.store.Get(kvPair{key: key})
	if !exists {
		return nil, false, nil
	}
	return copyBytes(ret.val), true, nil
}

func (st *MemoryStateStore) Scan(ctx context.Context, prefix []byte) ([]KeyValue, error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	var out []KeyValue
	st.store.AscendGreaterOrEqual(kvPair{key: prefix}, func(item kvPair) bool {
		if !hasPrefix(item.key, prefix) {
			return false
		}
		out = append(out, KeyValue{Key: copyBytes(item.key), Value: copyBytes(item.val)})
		return true
	})
	return out, nil
}

func (st *MemoryStateStore) IngestBatch(ctx context.Context, batch *WriteBatch) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	for _, e := range batch.Entries() {
		if e.IsDelete() {
			st.store.Delete(kvPair{key: e.Key})
		} else {
			st.store.ReplaceOrInsert(kvPair{key: copyBytes(e.Key), val: copyBytes(e.Value)})
		}
	}
	return nil
}

func (st *MemoryStateStore) Close() error {
	return nil
}
