package commtypes

import (
	"fmt"

	"streamsql/pkg/common_errors"
)

type Primitive interface {
	int64 | float64 | string | bool
}

// Array is an immutable column of a chunk.
type Array interface {
	DataType() DataType
	Len() int
	IsNull(i int) bool
	Datum(i int) Datum
	// Compact keeps only the rows set in vis.
	Compact(vis *Bitmap) Array
}

type PrimitiveArray[T Primitive] struct {
	dt     DataType
	values []T
	valid  []bool
}

var _ = Array(&PrimitiveArray[int64]{})

func NewPrimitiveArray[T Primitive](dt DataType, values []T, valid []bool) (*PrimitiveArray[T], error) {
	if valid != nil && len(valid) != len(values) {
		return nil, common_errors.SchemaViolation("array has %d values but %d validity bits",
			len(values), len(valid))
	}
	a := &PrimitiveArray[T]{dt: dt, values: make([]T, len(values)), valid: make([]bool, len(values))}
	copy(a.values, values)
	for i := range a.valid {
		a.valid[i] = valid == nil || valid[i]
	}
	return a, nil
}

func NewI64Array(values ...int64) *PrimitiveArray[int64] {
	a, _ := NewPrimitiveArray(Int64Type(false), values, nil)
	return a
}

func NewF64Array(values ...float64) *PrimitiveArray[float64] {
	a, _ := NewPrimitiveArray(Float64Type(false), values, nil)
	return a
}

func NewUtf8Array(values ...string) *PrimitiveArray[string] {
	a, _ := NewPrimitiveArray(VarcharType(false), values, nil)
	return a
}

func NewBoolArray(values ...bool) *PrimitiveArray[bool] {
	a, _ := NewPrimitiveArray(BooleanType(false), values, nil)
	return a
}

// ArrayFromDatums builds an array of type dt, nil datums become NULLs.
func ArrayFromDatums(dt DataType, datums []Datum) (Array, error) {
	b := dt.CreateArrayBuilder(len(datums))
	for _, d := range datums {
		if err := b.Append(d); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

func (a *PrimitiveArray[T]) DataType() DataType {
	return a.dt
}

func (a *PrimitiveArray[T]) Len() int {
	return len(a.values)
}

func (a *PrimitiveArray[T]) IsNull(i int) bool {
	return !a.valid[i]
}

func (a *PrimitiveArray[T]) Value(i int) (T, bool) {
	return a.values[i], a.valid[i]
}

func (a *PrimitiveArray[T]) Datum(i int) Datum {
	if !a.valid[i] {
		return nil
	}
	return a.values[i]
}

func (a *PrimitiveArray[T]) Compact(vis *Bitmap) Array {
	out := &PrimitiveArray[T]{
		dt:     a.dt,
		values: make([]T, 0, vis.CountOnes()),
		valid:  make([]bool, 0, vis.CountOnes()),
	}
	for i := range a.values {
		if vis.IsSet(i) {
			out.values = append(out.values, a.values[i])
			out.valid = append(out.valid, a.valid[i])
		}
	}
	return out
}

func (a *PrimitiveArray[T]) String() string {
	return fmt.Sprintf("%v%v", a.dt, datums(a))
}

func datums(a Array) []Datum {
	out := make([]Datum, a.Len())
	for i := range out {
		out[i] = a.Datum(i)
	}
	return out
}

type ArrayBuilder interface {
	Append(d Datum) error
	Len() int
	Finish() Array
}

type PrimitiveArrayBuilder[T Primitive] struct {
	dt     DataType
	values []T
	valid  []bool
}

var _ = ArrayBuilder(&PrimitiveArrayBuilder[int64]{})

func NewPrimitiveArrayBuilder[T Primitive](dt DataType, capacity int) *PrimitiveArrayBuilder[T] {
	return &PrimitiveArrayBuilder[T]{
		dt:     dt,
		values: make([]T, 0, capacity),
		valid:  make([]bool, 0, capacity),
	}
}

func (b *PrimitiveArrayBuilder[T]) Append(d Datum) error {
	if d == nil {
		var zero T
		b.values = append(b.values, zero)
		b.valid = append(b.valid, false)
		return nil
	}
	v, ok := d.(T)
	if !ok {
		return common_errors.SchemaViolation("cannot append %v (%T) to %v builder", d, d, b.dt)
	}
	b.values = append(b.values, v)
	b.valid = append(b.valid, true)
	return nil
}

func (b *PrimitiveArrayBuilder[T]) Len() int {
	return len(b.values)
}

func (b *PrimitiveArrayBuilder[T]) Finish() Array {
	a := &PrimitiveArray[T]{dt: b.dt, values: b.values, valid: b.valid}
	b.values = nil
	b.valid = nil
	return a
}
