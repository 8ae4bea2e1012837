package snapshot_store

import (
	"context"

	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
)

// MemorySnapshotStore keeps snapshots in process. Keys iterate in order, so
// listing a name walks its epochs from oldest to newest.
type MemorySnapshotStore struct {
	snapshots *skipmap.StringMap[[]byte]
}

var _ = SnapshotStore(&MemorySnapshotStore{})

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: skipmap.NewString[[]byte]()}
}

func (ms *MemorySnapshotStore) StoreSnapshot(ctx context.Context, name string, epoch uint64, snapshot []byte) error {
	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	ms.snapshots.Store(snapshotKey(name, epoch), cp)
	return nil
}

func (ms *MemorySnapshotStore) GetSnapshot(ctx context.Context, name string, epoch uint64) ([]byte, error) {
	key := snapshotKey(name, epoch)
	v, ok := ms.snapshots.Load(key)
	if !ok {
		return nil, xerrors.Errorf("snapshot %s: %w", key, common_errors.ErrSnapshotNotFound)
	}
	return v, nil
}

func (ms *MemorySnapshotStore) ListEpochs(ctx context.Context, name string) ([]uint64, error) {
	var epochs []uint64
	ms.snapshots.Range(func(key string, _ []byte) bool {
		if epoch, ok := parseSnapshotKey(name, key); ok {
			epochs = append(epochs, epoch)
		}
		return true
	})
	return epochs, nil
}
