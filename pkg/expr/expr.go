package expr

import (
	"fmt"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

// Expression is evaluated row by row against the columns of a chunk.
type Expression interface {
	ReturnType() commtypes.DataType
	EvalRow(row commtypes.Row) (commtypes.Datum, error)
	String() string
}

// Eval evaluates e over every physical row of chunk, visibility is left to
// the caller.
func Eval(e Expression, chunk *commtypes.StreamChunk) (commtypes.Array, error) {
	b := e.ReturnType().CreateArrayBuilder(chunk.Capacity())
	for i := 0; i < chunk.Capacity(); i++ {
		d, err := e.EvalRow(chunk.RowAt(i))
		if err != nil {
			return nil, err
		}
		if err := b.Append(d); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// CheckInputRefs verifies every column reference in e against the input
// schema.
func CheckInputRefs(e Expression, input commtypes.Schema) error {
	switch e := e.(type) {
	case *InputRef:
		if err := input.CheckIndices([]int{e.Index}); err != nil {
			return err
		}
		if input.Fields[e.Index].DataType.Kind != e.Type.Kind {
			return common_errors.SchemaViolation("%v is %v, input column is %v",
				e, e.Type, input.Fields[e.Index].DataType)
		}
	case *Binary:
		if err := CheckInputRefs(e.Left, input); err != nil {
			return err
		}
		return CheckInputRefs(e.Right, input)
	case *Not:
		return CheckInputRefs(e.Child, input)
	case *IsNull:
		return CheckInputRefs(e.Child, input)
	}
	return nil
}

type InputRef struct {
	Index int
	Type  commtypes.DataType
}

var _ = Expression(&InputRef{})

func NewInputRef(idx int, t commtypes.DataType) *InputRef {
	return &InputRef{Index: idx, Type: t}
}

func (e *InputRef) ReturnType() commtypes.DataType {
	return e.Type
}

func (e *InputRef) EvalRow(row commtypes.Row) (commtypes.Datum, error) {
	return row[e.Index], nil
}

func (e *InputRef) String() string {
	return fmt.Sprintf("$%d", e.Index)
}

type Literal struct {
	Value commtypes.Datum
	Type  commtypes.DataType
}

var _ = Expression(&Literal{})

func NewLiteral(v commtypes.Datum, t commtypes.DataType) (*Literal, error) {
	if err := commtypes.CheckDatum(t, v); err != nil {
		return nil, err
	}
	return &Literal{Value: v, Type: t}, nil
}

func (e *Literal) ReturnType() commtypes.DataType {
	return e.Type
}

func (e *Literal) EvalRow(row commtypes.Row) (commtypes.Datum, error) {
	return e.Value, nil
}

func (e *Literal) String() string {
	return fmt.Sprintf("%v", e.Value)
}
