package hashfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"streamsql/pkg/commtypes"
)

func TestRowHasherUsesOnlyKeyColumns(t *testing.T) {
	h := RowHasher{Indices: []int{1}}
	a := commtypes.Row{int64(1), "k"}
	b := commtypes.Row{int64(2), "k"}
	c := commtypes.Row{int64(1), "j"}
	assert.Equal(t, h.HashSum64(a), h.HashSum64(b))
	assert.Equal(t, h.VnodeOf(a), h.VnodeOf(b))
	assert.NotEqual(t, h.HashSum64(a), h.HashSum64(c))
}

func TestVnodeRange(t *testing.T) {
	h := RowHasher{Indices: []int{0}}
	for i := int64(0); i < 1000; i++ {
		assert.Less(t, h.VnodeOf(commtypes.Row{i}), uint32(VNODE_COUNT))
	}
}

func TestStringHasher(t *testing.T) {
	assert.Equal(t, StringHasher{}.HashSum64("abc"), ByteSliceHasher{}.HashSum64([]byte("abc")))
}
