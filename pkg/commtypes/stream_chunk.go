package commtypes

import (
	"fmt"
	"strings"

	"streamsql/pkg/common_errors"
)

// StreamChunk is a batch of change rows in columnar layout. It is never
// mutated once constructed.
type StreamChunk struct {
	ops        []Op
	columns    []Array
	visibility *Bitmap
}

func NewStreamChunk(ops []Op, columns []Array, visibility *Bitmap) (*StreamChunk, error) {
	n := len(ops)
	for idx, col := range columns {
		if col.Len() != n {
			return nil, common_errors.SchemaViolation("column %d has %d rows, chunk has %d ops",
				idx, col.Len(), n)
		}
	}
	if visibility != nil && visibility.Len() != n {
		return nil, common_errors.SchemaViolation("visibility has %d bits, chunk has %d ops",
			visibility.Len(), n)
	}
	opsCopy := make([]Op, n)
	copy(opsCopy, ops)
	colsCopy := make([]Array, len(columns))
	copy(colsCopy, columns)
	return &StreamChunk{ops: opsCopy, columns: colsCopy, visibility: visibility}, nil
}

// NewStreamChunkFromRows builds a compact chunk out of rows of the given types.
func NewStreamChunkFromRows(types []DataType, rows []OpRow) (*StreamChunk, error) {
	builders := make([]ArrayBuilder, len(types))
	for i, t := range types {
		builders[i] = t.CreateArrayBuilder(len(rows))
	}
	ops := make([]Op, 0, len(rows))
	for _, r := range rows {
		if len(r.Row) != len(types) {
			return nil, common_errors.SchemaViolation("row %v has %d datums, expected %d",
				r.Row, len(r.Row), len(types))
		}
		for i, d := range r.Row {
			if err := builders[i].Append(d); err != nil {
				return nil, err
			}
		}
		ops = append(ops, r.Op)
	}
	cols := make([]Array, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	return NewStreamChunk(ops, cols, nil)
}

func (c *StreamChunk) Ops() []Op {
	return c.ops
}

func (c *StreamChunk) Columns() []Array {
	return c.columns
}

func (c *StreamChunk) Column(i int) Array {
	return c.columns[i]
}

// Visibility is nil when every row is visible.
func (c *StreamChunk) Visibility() *Bitmap {
	return c.visibility
}

// Capacity is the number of physical rows, visible or not.
func (c *StreamChunk) Capacity() int {
	return len(c.ops)
}

// Cardinality is the number of visible rows.
func (c *StreamChunk) Cardinality() int {
	if c.visibility == nil {
		return len(c.ops)
	}
	return c.visibility.CountOnes()
}

func (c *StreamChunk) IsVisible(i int) bool {
	return c.visibility == nil || c.visibility.IsSet(i)
}

func (c *StreamChunk) RowAt(i int) Row {
	row := make(Row, len(c.columns))
	for j, col := range c.columns {
		row[j] = col.Datum(i)
	}
	return row
}

// Rows returns the visible rows in order.
func (c *StreamChunk) Rows() []OpRow {
	out := make([]OpRow, 0, c.Cardinality())
	for i, op := range c.ops {
		if c.IsVisible(i) {
			out = append(out, OpRow{Op: op, Row: c.RowAt(i)})
		}
	}
	return out
}

// WithVisibility returns a chunk sharing ops and columns under a new mask.
func (c *StreamChunk) WithVisibility(vis *Bitmap) (*StreamChunk, error) {
	return NewStreamChunk(c.ops, c.columns, vis)
}

// Compact materializes the visible rows into dense columns. When only one
// half of an UpdateDelete/UpdateInsert pair is visible, the surviving half
// becomes a plain Delete or Insert.
func (c *StreamChunk) Compact() (*StreamChunk, error) {
	if c.visibility == nil {
		return c, nil
	}
	for idx, col := range c.columns {
		if col.Len() != len(c.ops) {
			return nil, common_errors.SchemaViolation("column %d has %d rows, chunk has %d ops",
				idx, col.Len(), len(c.ops))
		}
	}
	ops := NormalizeUpdatePairs(c.ops, c.visibility)
	newOps := make([]Op, 0, c.visibility.CountOnes())
	for i, op := range ops {
		if c.visibility.IsSet(i) {
			newOps = append(newOps, op)
		}
	}
	cols := make([]Array, len(c.columns))
	for i, col := range c.columns {
		cols[i] = col.Compact(c.visibility)
	}
	return &StreamChunk{ops: newOps, columns: cols}, nil
}

// NormalizeUpdatePairs rewrites the visible half of an update pair whose
// other half is hidden by vis.
func NormalizeUpdatePairs(ops []Op, vis *Bitmap) []Op {
	out := make([]Op, len(ops))
	copy(out, ops)
	if vis == nil {
		return out
	}
	for i := 0; i+1 < len(out); i++ {
		if out[i] != UPDATE_DELETE || out[i+1] != UPDATE_INSERT {
			continue
		}
		del, ins := vis.IsSet(i), vis.IsSet(i+1)
		if del && !ins {
			out[i] = DELETE
		} else if !del && ins {
			out[i+1] = INSERT
		}
		i++
	}
	return out
}

func (c *StreamChunk) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "StreamChunk { cardinality: %d, capacity: %d\n", c.Cardinality(), c.Capacity())
	for i, op := range c.ops {
		if !c.IsVisible(i) {
			continue
		}
		fmt.Fprintf(&sb, "  %v %v\n", op, []Datum(c.RowAt(i)))
	}
	sb.WriteString("}")
	return sb.String()
}
