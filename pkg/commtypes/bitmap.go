package commtypes

import "strings"

// Bitmap is an immutable visibility mask. Row i is visible iff bit i is set.
type Bitmap struct {
	bits []bool
	ones int
}

func NewBitmap(bits []bool) *Bitmap {
	b := &Bitmap{bits: make([]bool, len(bits))}
	copy(b.bits, bits)
	for _, set := range bits {
		if set {
			b.ones++
		}
	}
	return b
}

func (b *Bitmap) Len() int {
	return len(b.bits)
}

func (b *Bitmap) IsSet(i int) bool {
	return b.bits[i]
}

func (b *Bitmap) CountOnes() int {
	return b.ones
}

func (b *Bitmap) String() string {
	var sb strings.Builder
	for _, set := range b.bits {
		if set {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
