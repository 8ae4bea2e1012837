package commtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
)

func TestNewStreamChunkRejectsRaggedColumns(t *testing.T) {
	_, err := NewStreamChunk([]Op{INSERT, INSERT}, []Array{NewI64Array(1, 2), NewI64Array(1)}, nil)
	require.Error(t, err)
	assert.True(t, common_errors.IsSchemaViolation(err))

	_, err = NewStreamChunk([]Op{INSERT}, []Array{NewI64Array(1)}, NewBitmap([]bool{true, false}))
	require.Error(t, err)
	assert.True(t, common_errors.IsSchemaViolation(err))
}

func TestStreamChunkCardinality(t *testing.T) {
	c, err := NewStreamChunk([]Op{INSERT, DELETE, INSERT},
		[]Array{NewI64Array(1, 2, 3)}, NewBitmap([]bool{true, false, true}))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Capacity())
	assert.Equal(t, 2, c.Cardinality())
	rows := c.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Row{int64(1)}, rows[0].Row)
	assert.Equal(t, Row{int64(3)}, rows[1].Row)
}

func TestCompactKeepsVisibleRows(t *testing.T) {
	c, err := NewStreamChunk([]Op{INSERT, DELETE, INSERT, INSERT},
		[]Array{NewI64Array(1, 2, 3, 4), NewUtf8Array("a", "b", "c", "d")},
		NewBitmap([]bool{false, true, false, true}))
	require.NoError(t, err)
	compacted, err := c.Compact()
	require.NoError(t, err)
	assert.Nil(t, compacted.Visibility())
	assert.Equal(t, []Op{DELETE, INSERT}, compacted.Ops())
	assert.Equal(t, Row{int64(2), "b"}, compacted.RowAt(0))
	assert.Equal(t, Row{int64(4), "d"}, compacted.RowAt(1))

	again, err := compacted.Compact()
	require.NoError(t, err)
	assert.Equal(t, compacted.Rows(), again.Rows())
}

func TestCompactNormalizesBrokenUpdatePairs(t *testing.T) {
	c, err := NewStreamChunk(
		[]Op{UPDATE_DELETE, UPDATE_INSERT, UPDATE_DELETE, UPDATE_INSERT, UPDATE_DELETE, UPDATE_INSERT},
		[]Array{NewI64Array(1, 2, 3, 4, 5, 6)},
		NewBitmap([]bool{true, false, false, true, true, true}))
	require.NoError(t, err)
	compacted, err := c.Compact()
	require.NoError(t, err)
	assert.Equal(t, []Op{DELETE, INSERT, UPDATE_DELETE, UPDATE_INSERT}, compacted.Ops())
	assert.Equal(t, Row{int64(1)}, compacted.RowAt(0))
	assert.Equal(t, Row{int64(4)}, compacted.RowAt(1))
}

func TestNewStreamChunkFromRowsWithNulls(t *testing.T) {
	types := []DataType{Int64Type(true), VarcharType(true)}
	c, err := NewStreamChunkFromRows(types, []OpRow{
		{Op: INSERT, Row: Row{int64(1), nil}},
		{Op: DELETE, Row: Row{nil, "x"}},
	})
	require.NoError(t, err)
	assert.True(t, c.Column(1).IsNull(0))
	assert.True(t, c.Column(0).IsNull(1))
	assert.Equal(t, Row{nil, "x"}, c.RowAt(1))

	_, err = NewStreamChunkFromRows(types, []OpRow{{Op: INSERT, Row: Row{"bad", nil}}})
	assert.True(t, common_errors.IsSchemaViolation(err))
}

func TestBarrierStop(t *testing.T) {
	b := NewStopBarrier(3, 1, 2)
	assert.True(t, b.IsStop())
	assert.True(t, b.IsStopActor(2))
	assert.False(t, b.IsStopActor(7))
	assert.False(t, NewBarrier(4).IsStop())

	msg := BarrierMessage(b)
	assert.True(t, msg.IsBarrier())
	assert.True(t, msg.IsStop())
	assert.Equal(t, uint64(3), msg.Barrier().Epoch)
}

func TestSchemaCheckIndices(t *testing.T) {
	sch := NewSchema(FieldUnnamed(Int64Type(false)), FieldUnnamed(VarcharType(true)))
	assert.NoError(t, sch.CheckIndices([]int{1, 0}))
	assert.NoError(t, sch.CheckIndices(nil))
	assert.True(t, common_errors.IsSchemaViolation(sch.CheckIndices([]int{0, 2})))
	assert.True(t, common_errors.IsSchemaViolation(sch.CheckIndices([]int{-1})))
}
