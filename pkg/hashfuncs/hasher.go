package hashfuncs

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"golang.org/x/exp/constraints"

	"streamsql/pkg/commtypes"
)

// VNODE_COUNT is the number of virtual nodes rows are hashed onto before
// being mapped to downstream actors.
const VNODE_COUNT = 256

type HashSum64[K any] interface {
	HashSum64(k K) uint64
}

type IntegerHasher[K constraints.Integer] struct{}

func (h IntegerHasher[K]) HashSum64(k K) uint64 {
	return uint64(k)
}

type StringHasher struct{}

func (sh StringHasher) HashSum64(k string) uint64 {
	return xxhash.Sum64String(k)
}

type ByteSliceHasher struct{}

func (sh ByteSliceHasher) HashSum64(k []byte) uint64 {
	return xxhash.Sum64(k)
}

// RowHasher hashes the datums of a row at the given column indices.
type RowHasher struct {
	Indices []int
}

var _ = HashSum64[commtypes.Row](RowHasher{})

func (h RowHasher) HashSum64(r commtypes.Row) uint64 {
	return xxhash.Sum64(h.key(r))
}

func (h RowHasher) key(r commtypes.Row) []byte {
	var b []byte
	for _, idx := range h.Indices {
		b = commtypes.AppendMemcomparable(b, r[idx], false)
	}
	return b
}

// VnodeOf maps the key columns of a row onto [0, VNODE_COUNT).
func (h RowHasher) VnodeOf(r commtypes.Row) uint32 {
	return murmur3.Sum32(h.key(r)) % VNODE_COUNT
}

// NameHash picks a shard for a store or object name.
func NameHash(name string) uint64 {
	return xxhash.Sum64String(name)
}
