package expr

import (
	"fmt"
	"math"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

type BinaryOp uint8

const (
	ADD BinaryOp = iota
	SUB
	MUL
	DIV
	MOD
	EQ
	NE
	LT
	LE
	GT
	GE
	AND
	OR
)

var binaryOpNames = [...]string{"+", "-", "*", "/", "%", "=", "<>", "<", "<=", ">", ">=", "AND", "OR"}

func (op BinaryOp) String() string {
	return binaryOpNames[op]
}

func (op BinaryOp) isArithmetic() bool {
	return op <= MOD
}

func (op BinaryOp) isComparison() bool {
	return op >= EQ && op <= GE
}

type Binary struct {
	Op          BinaryOp
	Left, Right Expression
	retType     commtypes.DataType
}

var _ = Expression(&Binary{})

// NewBinary type checks the operands and derives the result type.
func NewBinary(op BinaryOp, left, right Expression) (*Binary, error) {
	lt, rt := left.ReturnType(), right.ReturnType()
	nullable := lt.Nullable || rt.Nullable
	var ret commtypes.DataType
	switch {
	case op.isArithmetic():
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return nil, common_errors.EvalError("operator %v on %v and %v", op, lt, rt)
		}
		if lt.Kind == commtypes.FLOAT64 || rt.Kind == commtypes.FLOAT64 {
			ret = commtypes.Float64Type(nullable)
		} else {
			ret = commtypes.Int64Type(nullable)
		}
	case op.isComparison():
		if lt.Kind != rt.Kind && !(lt.IsNumeric() && rt.IsNumeric()) {
			return nil, common_errors.EvalError("cannot compare %v with %v", lt, rt)
		}
		ret = commtypes.BooleanType(nullable)
	default:
		if lt.Kind != commtypes.BOOLEAN || rt.Kind != commtypes.BOOLEAN {
			return nil, common_errors.EvalError("operator %v on %v and %v", op, lt, rt)
		}
		ret = commtypes.BooleanType(nullable)
	}
	return &Binary{Op: op, Left: left, Right: right, retType: ret}, nil
}

func (e *Binary) ReturnType() commtypes.DataType {
	return e.retType
}

func (e *Binary) String() string {
	return fmt.Sprintf("(%v %v %v)", e.Left, e.Op, e.Right)
}

func (e *Binary) EvalRow(row commtypes.Row) (commtypes.Datum, error) {
	l, err := e.Left.EvalRow(row)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.EvalRow(row)
	if err != nil {
		return nil, err
	}
	switch {
	case e.Op == AND || e.Op == OR:
		return evalLogic(e.Op, l, r)
	case l == nil || r == nil:
		return nil, nil
	case e.Op.isComparison():
		return evalCompare(e.Op, l, r)
	case e.retType.Kind == commtypes.FLOAT64:
		return evalFloat(e.Op, toFloat(l), toFloat(r))
	default:
		li, lok := l.(int64)
		ri, rok := r.(int64)
		if !lok || !rok {
			return nil, common_errors.EvalError("operator %v on %T and %T", e.Op, l, r)
		}
		return evalInt(e.Op, li, ri)
	}
}

func toFloat(d commtypes.Datum) float64 {
	switch v := d.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return math.NaN()
	}
}

func evalInt(op BinaryOp, l, r int64) (commtypes.Datum, error) {
	switch op {
	case ADD:
		s := l + r
		if (s > l) != (r > 0) {
			return nil, common_errors.EvalError("%d + %d overflows int64", l, r)
		}
		return s, nil
	case SUB:
		s := l - r
		if (s < l) != (r > 0) {
			return nil, common_errors.EvalError("%d - %d overflows int64", l, r)
		}
		return s, nil
	case MUL:
		if l == 0 || r == 0 {
			return int64(0), nil
		}
		p := l * r
		if p/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return nil, common_errors.EvalError("%d * %d overflows int64", l, r)
		}
		return p, nil
	case DIV:
		if r == 0 {
			return nil, common_errors.EvalError("division by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return nil, common_errors.EvalError("%d / %d overflows int64", l, r)
		}
		return l / r, nil
	case MOD:
		if r == 0 {
			return nil, common_errors.EvalError("division by zero")
		}
		if r == -1 {
			return int64(0), nil
		}
		return l % r, nil
	}
	return nil, common_errors.EvalError("unsupported int operator %v", op)
}

func evalFloat(op BinaryOp, l, r float64) (commtypes.Datum, error) {
	var v float64
	switch op {
	case ADD:
		v = l + r
	case SUB:
		v = l - r
	case MUL:
		v = l * r
	case DIV:
		if r == 0 {
			return nil, common_errors.EvalError("division by zero")
		}
		v = l / r
	case MOD:
		if r == 0 {
			return nil, common_errors.EvalError("division by zero")
		}
		v = math.Mod(l, r)
	default:
		return nil, common_errors.EvalError("unsupported float operator %v", op)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, common_errors.EvalError("%v %v %v overflows float64", l, op, r)
	}
	return v, nil
}

func evalCompare(op BinaryOp, l, r commtypes.Datum) (commtypes.Datum, error) {
	var c int
	_, lf := l.(float64)
	_, rf := r.(float64)
	if lf != rf {
		lv, rv := toFloat(l), toFloat(r)
		switch {
		case lv < rv:
			c = -1
		case lv > rv:
			c = 1
		}
	} else {
		c = commtypes.CompareDatum(l, r)
	}
	switch op {
	case EQ:
		return c == 0, nil
	case NE:
		return c != 0, nil
	case LT:
		return c < 0, nil
	case LE:
		return c <= 0, nil
	case GT:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// evalLogic implements three valued AND/OR.
func evalLogic(op BinaryOp, l, r commtypes.Datum) (commtypes.Datum, error) {
	lb, lok := l.(bool)
	rb, rok := r.(bool)
	if (l != nil && !lok) || (r != nil && !rok) {
		return nil, common_errors.EvalError("operator %v on %T and %T", op, l, r)
	}
	if op == AND {
		if (lok && !lb) || (rok && !rb) {
			return false, nil
		}
		if lok && rok {
			return true, nil
		}
		return nil, nil
	}
	if (lok && lb) || (rok && rb) {
		return true, nil
	}
	if lok && rok {
		return false, nil
	}
	return nil, nil
}
