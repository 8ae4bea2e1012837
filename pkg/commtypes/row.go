package commtypes

import "fmt"

type Row []Datum

func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if !DatumEqual(r[i], other[i]) {
			return false
		}
	}
	return true
}

func (r Row) Project(indices []int) Row {
	out := make(Row, len(indices))
	for i, idx := range indices {
		out[i] = r[idx]
	}
	return out
}

type OpRow struct {
	Op  Op
	Row Row
}

func (r OpRow) String() string {
	return fmt.Sprintf("%v%v", r.Op, []Datum(r.Row))
}
