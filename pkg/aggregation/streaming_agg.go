package aggregation

import (
	"math"

	"github.com/tinylib/msgp/msgp"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

// streamingAgg folds signed rows into a scalar aggregate that can be
// persisted and restored.
type streamingAgg interface {
	apply(sign int64, d commtypes.Datum) error
	output() commtypes.Datum
	encode() []byte
	decode(b []byte) error
}

func newStreamingAgg(call AggCall) (streamingAgg, error) {
	switch call.Kind {
	case ROW_COUNT:
		return &rowCountAgg{}, nil
	case COUNT:
		return &countAgg{}, nil
	case SUM:
		if call.Args.Types[0].Kind == commtypes.FLOAT64 {
			return &sumFloat64Agg{}, nil
		}
		return &sumInt64Agg{}, nil
	default:
		return nil, common_errors.InvalidAggCall("%v is not a value aggregate", call.Kind)
	}
}

func readInt64(b []byte) (int64, []byte, error) {
	v, rest, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return 0, rest, xerrors.Errorf("%v: %w", err, common_errors.ErrDecode)
	}
	return v, rest, nil
}

type rowCountAgg struct {
	count int64
}

func (a *rowCountAgg) apply(sign int64, d commtypes.Datum) error {
	a.count += sign
	return nil
}

func (a *rowCountAgg) output() commtypes.Datum {
	return a.count
}

func (a *rowCountAgg) encode() []byte {
	return msgp.AppendInt64(nil, a.count)
}

func (a *rowCountAgg) decode(b []byte) (err error) {
	a.count, _, err = readInt64(b)
	return err
}

// countAgg skips NULL inputs.
type countAgg struct {
	count int64
}

func (a *countAgg) apply(sign int64, d commtypes.Datum) error {
	if d != nil {
		a.count += sign
	}
	return nil
}

func (a *countAgg) output() commtypes.Datum {
	return a.count
}

func (a *countAgg) encode() []byte {
	return msgp.AppendInt64(nil, a.count)
}

func (a *countAgg) decode(b []byte) (err error) {
	a.count, _, err = readInt64(b)
	return err
}

// sumInt64Agg tracks the number of non-null inputs so an empty sum is NULL.
type sumInt64Agg struct {
	sum     int64
	nonNull int64
}

func (a *sumInt64Agg) apply(sign int64, d commtypes.Datum) error {
	if d == nil {
		return nil
	}
	v, ok := d.(int64)
	if !ok {
		return common_errors.SchemaViolation("sum(int64) got %T", d)
	}
	if sign < 0 {
		if v == math.MinInt64 {
			return common_errors.EvalError("sum retract of %d overflows int64", v)
		}
		v = -v
	}
	s := a.sum + v
	if (s > a.sum) != (v > 0) {
		return common_errors.EvalError("sum %d + %d overflows int64", a.sum, v)
	}
	a.sum = s
	a.nonNull += sign
	return nil
}

func (a *sumInt64Agg) output() commtypes.Datum {
	if a.nonNull == 0 {
		return nil
	}
	return a.sum
}

func (a *sumInt64Agg) encode() []byte {
	b := msgp.AppendArrayHeader(nil, 2)
	b = msgp.AppendInt64(b, a.sum)
	return msgp.AppendInt64(b, a.nonNull)
}

func (a *sumInt64Agg) decode(b []byte) error {
	if _, err := readPair(b, &a.sum, &a.nonNull); err != nil {
		return err
	}
	return nil
}

type sumFloat64Agg struct {
	sum     float64
	nonNull int64
}

func (a *sumFloat64Agg) apply(sign int64, d commtypes.Datum) error {
	if d == nil {
		return nil
	}
	v, ok := d.(float64)
	if !ok {
		return common_errors.SchemaViolation("sum(float64) got %T", d)
	}
	a.sum += float64(sign) * v
	a.nonNull += sign
	if a.nonNull == 0 {
		a.sum = 0
	}
	return nil
}

func (a *sumFloat64Agg) output() commtypes.Datum {
	if a.nonNull == 0 {
		return nil
	}
	return a.sum
}

func (a *sumFloat64Agg) encode() []byte {
	b := msgp.AppendArrayHeader(nil, 2)
	b = msgp.AppendFloat64(b, a.sum)
	return msgp.AppendInt64(b, a.nonNull)
}

func (a *sumFloat64Agg) decode(b []byte) error {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil || sz != 2 {
		return xerrors.Errorf("sum state header %d %v: %w", sz, err, common_errors.ErrDecode)
	}
	a.sum, b, err = msgp.ReadFloat64Bytes(b)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, common_errors.ErrDecode)
	}
	a.nonNull, _, err = readInt64(b)
	return err
}

func readPair(b []byte, first *int64, second *int64) ([]byte, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil || sz != 2 {
		return b, xerrors.Errorf("pair header %d %v: %w", sz, err, common_errors.ErrDecode)
	}
	if *first, b, err = readInt64(b); err != nil {
		return b, err
	}
	*second, b, err = readInt64(b)
	return b, err
}
