package commtypes

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
)

func TestDatumSerde(t *testing.T) {
	s := DatumSerde{}
	for _, d := range []Datum{nil, int64(-7), int64(1 << 40), 3.5, "hello", true} {
		b, err := s.Encode(d)
		require.NoError(t, err)
		got, err := s.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := s.Encode(int32(1))
	assert.Error(t, err)
	_, err = s.Decode([]byte{0xc1})
	assert.ErrorIs(t, err, common_errors.ErrDecode)
}

func TestExtremeEntrySerde(t *testing.T) {
	s := ExtremeEntrySerde{}
	b, err := s.Encode(ExtremeEntry{Value: "abc", Count: 3})
	require.NoError(t, err)
	e, err := s.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, ExtremeEntry{Value: "abc", Count: 3}, e)
}

func TestMemcomparableOrder(t *testing.T) {
	cases := [][]Datum{
		{nil, int64(-5), int64(0), int64(3), int64(1 << 50)},
		{nil, -2.5, -0.1, 0.0, 1.25, 100.0},
		{nil, "", "a", "abcdefgh", "abcdefghi", "b"},
		{nil, false, true},
	}
	for _, datums := range cases {
		for _, desc := range []bool{false, true} {
			keys := make([][]byte, len(datums))
			for i, d := range datums {
				keys[i] = AppendMemcomparable(nil, d, desc)
			}
			sorted := sort.SliceIsSorted(keys, func(i, j int) bool {
				if desc {
					return bytes.Compare(keys[i], keys[j]) > 0
				}
				return bytes.Compare(keys[i], keys[j]) < 0
			})
			assert.True(t, sorted, "datums %v desc=%v", datums, desc)
		}
	}
}

func TestSerializeRowDistinguishesColumns(t *testing.T) {
	a := SerializeRow(Row{"ab", "c"})
	b := SerializeRow(Row{"a", "bc"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, SerializeRow(Row{"ab", "c"}))
}
