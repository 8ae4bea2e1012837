package state_store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/utils/syncutils"
)

// badgerLogger routes badger's internal logging into zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

var _ = badger.Logger(badgerLogger{})

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

// BadgerStateStore persists state into a badger LSM tree.
type BadgerStateStore struct {
	open   syncutils.AtomicBool
	name   string
	dir    string
	logger zerolog.Logger
	db     *badger.DB
}

var _ = StateStore(&BadgerStateStore{})

// OpenBadgerStateStore opens a badger database at dir, or an in-memory one
// when dir is empty.
func OpenBadgerStateStore(name string, dir string) (*BadgerStateStore, error) {
	logger := log.With().Str("store", name).Logger()
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, common_errors.StateStoreError(xerrors.Errorf("open badger at %q: %w", dir, err))
	}
	st := &BadgerStateStore{name: name, dir: dir, logger: logger, db: db}
	st.open.Set(true)
	logger.Debug().Str("dir", dir).Bool("in_memory", dir == "").Msg("opened badger state store")
	return st, nil
}

func (st *BadgerStateStore) Name() string {
	return st.name
}

func (st *BadgerStateStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if !st.open.Get() {
		return nil, false, common_errors.StateStoreError(common_errors.ErrStoreNotOpen)
	}
	var val []byte
	found := true
	err := st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if xerrors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		st.logger.Err(err).Msgf("get key %x", key)
		return nil, false, common_errors.StateStoreError(err)
	}
	return val, found, nil
}

func (st *BadgerStateStore) Scan(ctx context.Context, prefix []byte) ([]KeyValue, error) {
	if !st.open.Get() {
		return nil, common_errors.StateStoreError(common_errors.ErrStoreNotOpen)
	}
	var out []KeyValue
	err := st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, KeyValue{Key: item.KeyCopy(nil), Value: val})
		}
		return nil
	})
	if err != nil {
		st.logger.Err(err).Msgf("scan prefix %x", prefix)
		return nil, common_errors.StateStoreError(err)
	}
	return out, nil
}

// IngestBatch applies the batch in a single transaction. A batch above
// badger's transaction size limit fails with badger.ErrTxnTooBig and
// leaves the store unchanged.
func (st *BadgerStateStore) IngestBatch(ctx context.Context, batch *WriteBatch) error {
	if !st.open.Get() {
		return common_errors.StateStoreError(common_errors.ErrStoreNotOpen)
	}
	err := st.db.Update(func(txn *badger.Txn) error {
		for _, e := range batch.Entries() {
			var err error
			if e.IsDelete() {
				err = txn.Delete(e.Key)
			} else {
				err = txn.Set(copyBytes(e.Key), copyBytes(e.Value))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		st.logger.Err(err).Int("entries", batch.Len()).Msg("ingest batch")
		return common_errors.StateStoreError(err)
	}
	st.logger.Trace().Int("entries", batch.Len()).Msg("ingested batch")
	return nil
}

func (st *BadgerStateStore) Close() error {
	if !st.open.Swap(false) {
		return nil
	}
	return st.db.Close()
}
