package expr

import (
	"fmt"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

type Not struct {
	Child Expression
}

var _ = Expression(&Not{})

func NewNot(child Expression) (*Not, error) {
	if child.ReturnType().Kind != commtypes.BOOLEAN {
		return nil, common_errors.EvalError("NOT on %v", child.ReturnType())
	}
	return &Not{Child: child}, nil
}

func (e *Not) ReturnType() commtypes.DataType {
	return e.Child.ReturnType()
}

func (e *Not) EvalRow(row commtypes.Row) (commtypes.Datum, error) {
	d, err := e.Child.EvalRow(row)
	if err != nil || d == nil {
		return nil, err
	}
	b, ok := d.(bool)
	if !ok {
		return nil, common_errors.EvalError("NOT on %T", d)
	}
	return !b, nil
}

func (e *Not) String() string {
	return fmt.Sprintf("NOT %v", e.Child)
}

type IsNull struct {
	Child Expression
}

var _ = Expression(&IsNull{})

func NewIsNull(child Expression) *IsNull {
	return &IsNull{Child: child}
}

func (e *IsNull) ReturnType() commtypes.DataType {
	return commtypes.BooleanType(false)
}

func (e *IsNull) EvalRow(row commtypes.Row) (commtypes.Datum, error) {
	d, err := e.Child.EvalRow(row)
	if err != nil {
		return nil, err
	}
	return d == nil, nil
}

func (e *IsNull) String() string {
	return fmt.Sprintf("%v IS NULL", e.Child)
}
