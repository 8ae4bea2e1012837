package snapshot_store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/env_config"
	"streamsql/pkg/state_store"
)

func snapshotStores(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	stores := map[string]SnapshotStore{"memory": NewMemorySnapshotStore()}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		stores["redis"] = NewRedisSnapshotStore(addr)
	}
	if os.Getenv("MINIO_ADDR") != "" {
		cfg, err := env_config.Load()
		require.NoError(t, err)
		ms, err := NewMinioSnapshotStore(cfg)
		require.NoError(t, err)
		require.NoError(t, ms.CreateSnapshotBucket(context.Background()))
		stores["minio"] = ms
	}
	return stores
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, ss := range snapshotStores(t) {
		t.Run(kind, func(t *testing.T) {
			name := "roundtrip_" + t.Name()
			require.NoError(t, ss.StoreSnapshot(ctx, name, 2, []byte("two")))
			require.NoError(t, ss.StoreSnapshot(ctx, name, 1, []byte("one")))
			require.NoError(t, ss.StoreSnapshot(ctx, name+"x", 7, []byte("other")))

			got, err := ss.GetSnapshot(ctx, name, 2)
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), got)
			epochs, err := ss.ListEpochs(ctx, name)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint64{1, 2}, epochs)
		})
	}
}

func TestMemorySnapshotMissing(t *testing.T) {
	ss := NewMemorySnapshotStore()
	_, err := ss.GetSnapshot(context.Background(), "none", 1)
	assert.ErrorIs(t, err, common_errors.ErrSnapshotNotFound)
	epochs, err := ss.ListEpochs(context.Background(), "none")
	require.NoError(t, err)
	assert.Empty(t, epochs)
}

func TestExportAndRestore(t *testing.T) {
	ctx := context.Background()
	ss := NewMemorySnapshotStore()
	changelog := state_store.NewChangelogStateStore(state_store.NewMemoryStateStore("src"))

	wb := state_store.NewWriteBatch()
	wb.Put([]byte("a"), []byte("1"))
	wb.Put([]byte("b"), []byte("2"))
	require.NoError(t, changelog.IngestBatch(ctx, wb))
	require.NoError(t, ExportChangelog(ctx, ss, "src", 1, changelog))

	// nothing changed during epoch 2
	require.NoError(t, ExportChangelog(ctx, ss, "src", 2, changelog))

	wb = state_store.NewWriteBatch()
	wb.Delete([]byte("a"))
	wb.Put([]byte("c"), []byte("3"))
	require.NoError(t, changelog.IngestBatch(ctx, wb))
	require.NoError(t, ExportChangelog(ctx, ss, "src", 3, changelog))

	epochs, err := ss.ListEpochs(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, epochs)

	restored := state_store.NewMemoryStateStore("dst")
	last, err := RestoreStateStore(ctx, ss, "src", restored)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)
	kvs, err := restored.Scan(ctx, nil)
	require.NoError(t, err)
	want, err := changelog.Scan(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, want, kvs)
	require.Len(t, kvs, 2)
	assert.Equal(t, []byte("b"), kvs[0].Key)
}

func TestParseSnapshotKey(t *testing.T) {
	epoch, ok := parseSnapshotKey("s", snapshotKey("s", 0x1f))
	assert.True(t, ok)
	assert.Equal(t, uint64(0x1f), epoch)
	_, ok = parseSnapshotKey("s", snapshotKey("s2", 1))
	assert.False(t, ok)
}
