package snapshot_store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/state_store"
)

// SnapshotStore keeps the state changes every completed epoch wrote to a
// state store. Each snapshot is a msgp encoded state_store.WriteBatch.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, name string, epoch uint64, snapshot []byte) error
	GetSnapshot(ctx context.Context, name string, epoch uint64) ([]byte, error)
	// ListEpochs returns the stored epochs of name in increasing order.
	ListEpochs(ctx context.Context, name string) ([]uint64, error)
}

// snapshotKey is zero padded so that lexical order is epoch order.
func snapshotKey(name string, epoch uint64) string {
	return fmt.Sprintf("%s_%016x", name, epoch)
}

func parseSnapshotKey(name string, key string) (uint64, bool) {
	suffix, ok := strings.CutPrefix(key, name+"_")
	if !ok || len(suffix) != 16 {
		return 0, false
	}
	epoch, err := strconv.ParseUint(suffix, 16, 64)
	if err != nil {
		return 0, false
	}
	return epoch, true
}

// ExportChangelog stores the batches the changelog collected since the last
// export as the snapshot of epoch. Nothing is written for an empty epoch.
func ExportChangelog(ctx context.Context, ss SnapshotStore, name string, epoch uint64,
	changelog *state_store.ChangelogStateStore,
) error {
	wb := changelog.TakeChangelog()
	if wb.IsEmpty() {
		return nil
	}
	enc, err := wb.MarshalMsg(nil)
	if err != nil {
		return err
	}
	log.Debug().Str("store", name).Uint64("epoch", epoch).Int("entries", wb.Len()).
		Int("bytes", len(enc)).Msg("export snapshot")
	return ss.StoreSnapshot(ctx, name, epoch, enc)
}

// RestoreStateStore replays every snapshot of name into store and returns
// the last restored epoch, or 0 if there was none.
func RestoreStateStore(ctx context.Context, ss SnapshotStore, name string, store state_store.StateStore) (uint64, error) {
	epochs, err := ss.ListEpochs(ctx, name)
	if err != nil {
		return 0, err
	}
	var last uint64
	for _, epoch := range epochs {
		enc, err := ss.GetSnapshot(ctx, name, epoch)
		if err != nil {
			return 0, err
		}
		wb := state_store.NewWriteBatch()
		if _, err := wb.UnmarshalMsg(enc); err != nil {
			return 0, xerrors.Errorf("decode snapshot %s: %w", snapshotKey(name, epoch), err)
		}
		if err := store.IngestBatch(ctx, wb); err != nil {
			return 0, err
		}
		last = epoch
	}
	if last != 0 {
		log.Info().Str("store", name).Uint64("epoch", last).Int("snapshots", len(epochs)).Msg("restored state store")
	}
	return last, nil
}
