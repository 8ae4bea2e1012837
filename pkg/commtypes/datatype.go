package commtypes

import (
	"fmt"
	"strings"

	"streamsql/pkg/common_errors"
)

type TypeKind uint8

const (
	INT64 TypeKind = iota
	FLOAT64
	VARCHAR
	BOOLEAN
)

func (k TypeKind) String() string {
	switch k {
	case INT64:
		return "Int64"
	case FLOAT64:
		return "Float64"
	case VARCHAR:
		return "Varchar"
	case BOOLEAN:
		return "Boolean"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

type DataType struct {
	Kind     TypeKind
	Nullable bool
}

func Int64Type(nullable bool) DataType   { return DataType{Kind: INT64, Nullable: nullable} }
func Float64Type(nullable bool) DataType { return DataType{Kind: FLOAT64, Nullable: nullable} }
func VarcharType(nullable bool) DataType { return DataType{Kind: VARCHAR, Nullable: nullable} }
func BooleanType(nullable bool) DataType { return DataType{Kind: BOOLEAN, Nullable: nullable} }

func (t DataType) String() string {
	if t.Nullable {
		return t.Kind.String() + "?"
	}
	return t.Kind.String()
}

func (t DataType) IsNumeric() bool {
	return t.Kind == INT64 || t.Kind == FLOAT64
}

func (t DataType) CreateArrayBuilder(capacity int) ArrayBuilder {
	switch t.Kind {
	case INT64:
		return NewPrimitiveArrayBuilder[int64](t, capacity)
	case FLOAT64:
		return NewPrimitiveArrayBuilder[float64](t, capacity)
	case VARCHAR:
		return NewPrimitiveArrayBuilder[string](t, capacity)
	case BOOLEAN:
		return NewPrimitiveArrayBuilder[bool](t, capacity)
	default:
		panic(fmt.Sprintf("unsupported data type %v", t))
	}
}

// Datum is a single nullable scalar: nil, int64, float64, string or bool.
type Datum interface{}

func CheckDatum(t DataType, d Datum) error {
	if d == nil {
		return nil
	}
	ok := false
	switch t.Kind {
	case INT64:
		_, ok = d.(int64)
	case FLOAT64:
		_, ok = d.(float64)
	case VARCHAR:
		_, ok = d.(string)
	case BOOLEAN:
		_, ok = d.(bool)
	}
	if !ok {
		return common_errors.SchemaViolation("datum %v (%T) does not match type %v", d, d, t)
	}
	return nil
}

// CompareDatum orders NULL before every value. Both datums must be of the
// same kind.
func CompareDatum(a, b Datum) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		if av < bv {
			return -1
		} else if av == bv {
			return 0
		}
		return 1
	case float64:
		bv := b.(float64)
		if av < bv {
			return -1
		} else if av > bv {
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		} else if !av {
			return -1
		}
		return 1
	default:
		panic(fmt.Sprintf("unsupported datum %T", a))
	}
}

func DatumEqual(a, b Datum) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
