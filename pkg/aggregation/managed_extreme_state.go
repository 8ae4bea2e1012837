package aggregation

import (
	"context"

	"github.com/google/btree"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/state_store"
)

type extremeEntry struct {
	value commtypes.Datum
	count int64
}

func extremeEntryLess(a, b extremeEntry) bool {
	return commtypes.CompareDatum(a.value, b.value) < 0
}

// ManagedExtremeState maintains min or max as a multiset of value -> count
// so that any value can be retracted. Every distinct value is stored under
// its own key; only the best cacheSize values are kept in memory.
type ManagedExtremeState struct {
	kind      AggKind
	ks        *state_store.Keyspace
	cache     *btree.BTreeG[extremeEntry]
	cacheSize int
	loaded    bool
	// complete is set when the cache holds every value of the group.
	complete bool
	// dirty holds the count after this cycle's changes for every value
	// touched since the last flush, keyed by its encoded store key.
	dirty map[string]commtypes.ExtremeEntry
	serde commtypes.ExtremeEntrySerde
}

var _ = ManagedState(&ManagedExtremeState{})

func NewManagedExtremeState(call AggCall, ks *state_store.Keyspace, cacheSize int) (*ManagedExtremeState, error) {
	if !call.IsExtreme() {
		return nil, common_errors.InvalidAggCall("%v is not an extreme aggregate", call.Kind)
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}
	return &ManagedExtremeState{
		kind:      call.Kind,
		ks:        ks,
		cache:     btree.NewG(2, extremeEntryLess),
		cacheSize: cacheSize,
		dirty:     make(map[string]commtypes.ExtremeEntry),
	}, nil
}

func (s *ManagedExtremeState) encodeKey(d commtypes.Datum) []byte {
	return commtypes.AppendMemcomparable(nil, d, s.kind == MAX)
}

func (s *ManagedExtremeState) better(a, b commtypes.Datum) bool {
	c := commtypes.CompareDatum(a, b)
	if s.kind == MIN {
		return c < 0
	}
	return c > 0
}

func (s *ManagedExtremeState) best() (extremeEntry, bool) {
	if s.kind == MIN {
		return s.cache.Min()
	}
	return s.cache.Max()
}

func (s *ManagedExtremeState) worst() (extremeEntry, bool) {
	if s.kind == MIN {
		return s.cache.Max()
	}
	return s.cache.Min()
}

func (s *ManagedExtremeState) trim() {
	for s.cache.Len() > s.cacheSize {
		w, _ := s.worst()
		s.cache.Delete(w)
		s.complete = false
	}
}

// load rebuilds the cache from the store with the unflushed changes laid
// over it.
func (s *ManagedExtremeState) load(ctx context.Context) error {
	kvs, err := s.ks.Scan(ctx, nil)
	if err != nil {
		return err
	}
	merged := btree.NewG(2, extremeEntryLess)
	for _, kv := range kvs {
		if _, ok := s.dirty[string(kv.Key[len(s.ks.Prefix()):])]; ok {
			continue
		}
		e, err := s.serde.Decode(kv.Value)
		if err != nil {
			return err
		}
		merged.ReplaceOrInsert(extremeEntry{value: e.Value, count: e.Count})
	}
	for _, e := range s.dirty {
		if e.Count > 0 {
			merged.ReplaceOrInsert(extremeEntry{value: e.Value, count: e.Count})
		}
	}
	s.cache = merged
	s.complete = true
	s.trim()
	s.loaded = true
	return nil
}

func (s *ManagedExtremeState) currentCount(ctx context.Context, key string, d commtypes.Datum) (int64, error) {
	if e, ok := s.dirty[key]; ok {
		return e.Count, nil
	}
	if e, ok := s.cache.Get(extremeEntry{value: d}); ok {
		return e.count, nil
	}
	if s.complete {
		return 0, nil
	}
	raw, ok, err := s.ks.Get(ctx, []byte(key))
	if err != nil || !ok {
		return 0, err
	}
	e, err := s.serde.Decode(raw)
	if err != nil {
		return 0, err
	}
	return e.Count, nil
}

func (s *ManagedExtremeState) ApplyBatch(ctx context.Context, ops []commtypes.Op, visibility *commtypes.Bitmap, data []commtypes.Array) error {
	if err := checkBatch(ops, visibility, data); err != nil {
		return err
	}
	if !s.loaded {
		if err := s.load(ctx); err != nil {
			return err
		}
	}
	for i, op := range ops {
		if visibility != nil && !visibility.IsSet(i) {
			continue
		}
		d := argAt(data, i)
		if d == nil {
			continue
		}
		key := string(s.encodeKey(d))
		cur, err := s.currentCount(ctx, key, d)
		if err != nil {
			return err
		}
		n := cur + op.Sign()
		if n < 0 {
			return common_errors.SchemaViolation("%v retracts value %v that is not present", s.kind, d)
		}
		s.dirty[key] = commtypes.ExtremeEntry{Value: d, Count: n}
		s.updateCache(d, n)
	}
	return nil
}

func (s *ManagedExtremeState) updateCache(d commtypes.Datum, n int64) {
	e := extremeEntry{value: d, count: n}
	if n == 0 {
		s.cache.Delete(e)
		return
	}
	if _, ok := s.cache.Get(e); ok || s.complete {
		s.cache.ReplaceOrInsert(e)
		return
	}
	// an incomplete cache may only take values that rank above its worst
	// entry, everything else stays in the store
	if w, ok := s.worst(); ok && s.better(d, w.value) {
		s.cache.ReplaceOrInsert(e)
	}
}

func (s *ManagedExtremeState) GetOutput(ctx context.Context) (commtypes.Datum, error) {
	if !s.loaded || (s.cache.Len() == 0 && !s.complete) {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
	}
	b, ok := s.best()
	if !ok {
		return nil, nil
	}
	return b.value, nil
}

func (s *ManagedExtremeState) IsDirty() bool {
	return len(s.dirty) > 0
}

func (s *ManagedExtremeState) Flush(ctx context.Context, wb *state_store.WriteBatch, purge bool) error {
	keys := maps.Keys(s.dirty)
	slices.Sort(keys)
	for _, k := range keys {
		e := s.dirty[k]
		if e.Count == 0 || purge {
			wb.Delete(s.ks.Key([]byte(k)))
			continue
		}
		raw, err := s.serde.Encode(e)
		if err != nil {
			return err
		}
		wb.Put(s.ks.Key([]byte(k)), raw)
	}
	s.dirty = make(map[string]commtypes.ExtremeEntry)
	if purge {
		s.cache = btree.NewG(2, extremeEntryLess)
		s.complete = true
		return nil
	}
	s.trim()
	return nil
}
