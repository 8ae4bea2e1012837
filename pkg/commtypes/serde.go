package commtypes

import (
	"github.com/tinylib/msgp/msgp"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
)

type EncoderG[V any] interface {
	Encode(v V) ([]byte, error)
}

type DecoderG[V any] interface {
	Decode([]byte) (V, error)
}

type SerdeG[V any] interface {
	EncoderG[V]
	DecoderG[V]
}

// AppendDatum appends the msgpack form of d to b.
func AppendDatum(b []byte, d Datum) []byte {
	switch v := d.(type) {
	case nil:
		return msgp.AppendNil(b)
	case int64:
		return msgp.AppendInt64(b, v)
	case float64:
		return msgp.AppendFloat64(b, v)
	case string:
		return msgp.AppendString(b, v)
	case bool:
		return msgp.AppendBool(b, v)
	default:
		panic(xerrors.Errorf("unsupported datum %T", d))
	}
}

// ReadDatum reads one datum written by AppendDatum and returns the rest.
func ReadDatum(b []byte) (Datum, []byte, error) {
	var err error
	switch msgp.NextType(b) {
	case msgp.NilType:
		b, err = msgp.ReadNilBytes(b)
		return nil, b, wrapDecodeErr(err)
	case msgp.IntType, msgp.UintType:
		var v int64
		v, b, err = msgp.ReadInt64Bytes(b)
		return v, b, wrapDecodeErr(err)
	case msgp.Float64Type:
		var v float64
		v, b, err = msgp.ReadFloat64Bytes(b)
		return v, b, wrapDecodeErr(err)
	case msgp.StrType:
		var v string
		v, b, err = msgp.ReadStringBytes(b)
		return v, b, wrapDecodeErr(err)
	case msgp.BoolType:
		var v bool
		v, b, err = msgp.ReadBoolBytes(b)
		return v, b, wrapDecodeErr(err)
	default:
		return nil, b, xerrors.Errorf("unexpected msgp type %v: %w", msgp.NextType(b), common_errors.ErrDecode)
	}
}

func wrapDecodeErr(err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf("%v: %w", err, common_errors.ErrDecode)
}

type DatumSerde struct{}

var _ = SerdeG[Datum](DatumSerde{})

func (s DatumSerde) Encode(d Datum) ([]byte, error) {
	if err := checkSupported(d); err != nil {
		return nil, err
	}
	return AppendDatum(nil, d), nil
}

func (s DatumSerde) Decode(b []byte) (Datum, error) {
	d, rest, err := ReadDatum(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, xerrors.Errorf("%d trailing bytes after datum: %w", len(rest), common_errors.ErrDecode)
	}
	return d, nil
}

func checkSupported(d Datum) error {
	switch d.(type) {
	case nil, int64, float64, string, bool:
		return nil
	default:
		return common_errors.SchemaViolation("unsupported datum %T", d)
	}
}

// ExtremeEntry is the persisted form of one distinct value of a min/max
// multiset.
type ExtremeEntry struct {
	Value Datum
	Count int64
}

type ExtremeEntrySerde struct{}

var _ = SerdeG[ExtremeEntry](ExtremeEntrySerde{})

func (s ExtremeEntrySerde) Encode(e ExtremeEntry) ([]byte, error) {
	if err := checkSupported(e.Value); err != nil {
		return nil, err
	}
	b := msgp.AppendArrayHeader(nil, 2)
	b = AppendDatum(b, e.Value)
	b = msgp.AppendInt64(b, e.Count)
	return b, nil
}

func (s ExtremeEntrySerde) Decode(b []byte) (ExtremeEntry, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return ExtremeEntry{}, wrapDecodeErr(err)
	}
	if sz != 2 {
		return ExtremeEntry{}, xerrors.Errorf("extreme entry has %d fields: %w", sz, common_errors.ErrDecode)
	}
	v, b, err := ReadDatum(b)
	if err != nil {
		return ExtremeEntry{}, err
	}
	cnt, _, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return ExtremeEntry{}, wrapDecodeErr(err)
	}
	return ExtremeEntry{Value: v, Count: cnt}, nil
}
