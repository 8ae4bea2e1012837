package state_store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/redis_client"
)

func getStores(t *testing.T) map[string]StateStore {
	t.Helper()
	stores := map[string]StateStore{
		"memory": NewMemoryStateStore("test"),
	}
	bst, err := OpenBadgerStateStore("test", "")
	require.NoError(t, err)
	stores["badger"] = bst
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb, err := redis_client.GetRedisClient(context.Background(), addr)
		require.NoError(t, err)
		rst := NewRedisStateStore("state_store_test_"+t.Name(), rdb)
		stores["redis"] = rst
	}
	t.Cleanup(func() {
		for _, st := range stores {
			_ = st.Close()
		}
	})
	return stores
}

func cleanup(t *testing.T, ctx context.Context, st StateStore, prefix []byte) {
	kvs, err := st.Scan(ctx, prefix)
	require.NoError(t, err)
	b := NewWriteBatch()
	for _, kv := range kvs {
		b.Delete(kv.Key)
	}
	if !b.IsEmpty() {
		require.NoError(t, st.IngestBatch(ctx, b))
	}
}

func TestGetAfterIngest(t *testing.T) {
	ctx := context.Background()
	for name, st := range getStores(t) {
		t.Run(name, func(t *testing.T) {
			cleanup(t, ctx, st, []byte("g"))
			_, ok, err := st.Get(ctx, []byte("g1"))
			require.NoError(t, err)
			assert.False(t, ok)

			b := NewWriteBatch()
			b.Put([]byte("g1"), []byte("v1"))
			b.Put([]byte("g2"), []byte("v2"))
			require.NoError(t, st.IngestBatch(ctx, b))

			v, ok, err := st.Get(ctx, []byte("g1"))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("v1"), v)

			b = NewWriteBatch()
			b.Delete([]byte("g1"))
			b.Put([]byte("g2"), []byte("v3"))
			require.NoError(t, st.IngestBatch(ctx, b))
			_, ok, err = st.Get(ctx, []byte("g1"))
			require.NoError(t, err)
			assert.False(t, ok)
			v, _, err = st.Get(ctx, []byte("g2"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v3"), v)
		})
	}
}

func TestScanIsOrderedAndPrefixed(t *testing.T) {
	ctx := context.Background()
	for name, st := range getStores(t) {
		t.Run(name, func(t *testing.T) {
			cleanup(t, ctx, st, []byte("s"))
			b := NewWriteBatch()
			b.Put([]byte("sb\x02"), []byte("3"))
			b.Put([]byte("sa"), []byte("1"))
			b.Put([]byte("sb\x01"), []byte("2"))
			b.Put([]byte("t"), []byte("x"))
			require.NoError(t, st.IngestBatch(ctx, b))

			kvs, err := st.Scan(ctx, []byte("s"))
			require.NoError(t, err)
			require.Len(t, kvs, 3)
			assert.Equal(t, []byte("sa"), kvs[0].Key)
			assert.Equal(t, []byte("sb\x01"), kvs[1].Key)
			assert.Equal(t, []byte("sb\x02"), kvs[2].Key)

			kvs, err = st.Scan(ctx, []byte("sb"))
			require.NoError(t, err)
			assert.Len(t, kvs, 2)
			cleanup(t, ctx, st, []byte("t"))
		})
	}
}

func TestKeyspaceIsolation(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStateStore("ks")
	ks1 := ExecutorKeyspace(st, 1)
	ks2 := ExecutorKeyspace(st, 2)

	b := NewWriteBatch()
	b.Put(ks1.Key([]byte("k")), []byte("one"))
	require.NoError(t, ks1.IngestBatch(ctx, b))

	_, ok, err := ks2.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := ks1.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), v)

	kvs, err := ks1.Scan(ctx, nil)
	require.NoError(t, err)
	require.Len(t, kvs, 1)
	assert.Equal(t, ks1.Key([]byte("k")), kvs[0].Key)
}

func TestClosedBadgerReturnsStoreError(t *testing.T) {
	st, err := OpenBadgerStateStore("closed", "")
	require.NoError(t, err)
	require.NoError(t, st.Close())
	_, _, err = st.Get(context.Background(), []byte("k"))
	assert.True(t, common_errors.IsStateStoreError(err))
	assert.ErrorIs(t, err, common_errors.ErrStoreNotOpen)
}

func TestBadgerRejectsOversizedBatch(t *testing.T) {
	ctx := context.Background()
	st, err := OpenBadgerStateStore("oversized", "")
	require.NoError(t, err)
	defer st.Close()

	// 20 MiB is above the default transaction limit of 15% of a 64 MiB memtable
	val := make([]byte, 64<<10)
	b := NewWriteBatch()
	for i := 0; i < 320; i++ {
		b.Put([]byte(fmt.Sprintf("k%04d", i)), val)
	}
	err = st.IngestBatch(ctx, b)
	require.Error(t, err)
	assert.True(t, common_errors.IsStateStoreError(err))
	assert.ErrorIs(t, err, badger.ErrTxnTooBig)

	_, ok, err := st.Get(ctx, []byte("k0000"))
	require.NoError(t, err)
	assert.False(t, ok)

	small := NewWriteBatch()
	small.Put([]byte("k0000"), []byte("v"))
	require.NoError(t, st.IngestBatch(ctx, small))
	v, ok, err := st.Get(ctx, []byte("k0000"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestWriteBatchEncoding(t *testing.T) {
	b := NewWriteBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Delete([]byte("b"))
	b.Put([]byte("c"), []byte{})
	enc, err := b.MarshalMsg(nil)
	require.NoError(t, err)

	var got WriteBatch
	rest, err := got.UnmarshalMsg(enc)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, []byte("1"), got.Entries()[0].Value)
	assert.True(t, got.Entries()[1].IsDelete())
	assert.False(t, got.Entries()[2].IsDelete())

	_, _, err = DecodeValue([]byte{7})
	assert.ErrorIs(t, err, common_errors.ErrDecode)
}

func TestChangelogStateStore(t *testing.T) {
	ctx := context.Background()
	st := NewChangelogStateStore(NewMemoryStateStore("cl"))
	b := NewWriteBatch()
	b.Put([]byte("a"), []byte("1"))
	require.NoError(t, st.IngestBatch(ctx, b))
	b = NewWriteBatch()
	b.Delete([]byte("a"))
	require.NoError(t, st.IngestBatch(ctx, b))

	cl := st.TakeChangelog()
	assert.Equal(t, 2, cl.Len())
	assert.Equal(t, 0, st.TakeChangelog().Len())
}
