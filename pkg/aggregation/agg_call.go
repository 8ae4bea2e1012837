package aggregation

import (
	"fmt"
	"strings"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

type AggKind uint8

const (
	ROW_COUNT AggKind = iota
	COUNT
	SUM
	MIN
	MAX
)

func (k AggKind) String() string {
	switch k {
	case ROW_COUNT:
		return "row_count"
	case COUNT:
		return "count"
	case SUM:
		return "sum"
	case MIN:
		return "min"
	case MAX:
		return "max"
	default:
		return fmt.Sprintf("AggKind(%d)", k)
	}
}

// AggArgs are the input columns of an aggregate call, empty for row_count.
type AggArgs struct {
	Indices []int
	Types   []commtypes.DataType
}

func NoArgs() AggArgs {
	return AggArgs{}
}

func UnaryArgs(idx int, t commtypes.DataType) AggArgs {
	return AggArgs{Indices: []int{idx}, Types: []commtypes.DataType{t}}
}

type AggCall struct {
	Kind       AggKind
	Args       AggArgs
	ReturnType commtypes.DataType
}

func RowCount() AggCall {
	return AggCall{Kind: ROW_COUNT, ReturnType: commtypes.Int64Type(false)}
}

func Count(idx int, t commtypes.DataType) AggCall {
	return AggCall{Kind: COUNT, Args: UnaryArgs(idx, t), ReturnType: commtypes.Int64Type(false)}
}

func Sum(idx int, t commtypes.DataType) AggCall {
	ret := commtypes.Int64Type(true)
	if t.Kind == commtypes.FLOAT64 {
		ret = commtypes.Float64Type(true)
	}
	return AggCall{Kind: SUM, Args: UnaryArgs(idx, t), ReturnType: ret}
}

func Min(idx int, t commtypes.DataType) AggCall {
	return AggCall{Kind: MIN, Args: UnaryArgs(idx, t), ReturnType: commtypes.DataType{Kind: t.Kind, Nullable: true}}
}

func Max(idx int, t commtypes.DataType) AggCall {
	return AggCall{Kind: MAX, Args: UnaryArgs(idx, t), ReturnType: commtypes.DataType{Kind: t.Kind, Nullable: true}}
}

func (c AggCall) IsExtreme() bool {
	return c.Kind == MIN || c.Kind == MAX
}

func (c AggCall) String() string {
	args := make([]string, len(c.Args.Indices))
	for i, idx := range c.Args.Indices {
		args[i] = fmt.Sprintf("$%d", idx)
	}
	return fmt.Sprintf("%v(%s) -> %v", c.Kind, strings.Join(args, ", "), c.ReturnType)
}

// Validate checks the call against the input schema.
func (c AggCall) Validate(input commtypes.Schema) error {
	switch c.Kind {
	case ROW_COUNT:
		if len(c.Args.Indices) != 0 {
			return common_errors.InvalidAggCall("row_count takes no arguments")
		}
		return nil
	case COUNT, SUM, MIN, MAX:
		if len(c.Args.Indices) != 1 || len(c.Args.Types) != 1 {
			return common_errors.InvalidAggCall("%v takes exactly one argument", c.Kind)
		}
	default:
		return common_errors.InvalidAggCall("unknown aggregate %v", c.Kind)
	}
	idx := c.Args.Indices[0]
	if idx < 0 || idx >= input.Len() {
		return common_errors.InvalidAggCall("%v argument $%d out of range for %v", c.Kind, idx, input)
	}
	if input.Fields[idx].DataType.Kind != c.Args.Types[0].Kind {
		return common_errors.InvalidAggCall("%v argument $%d is %v, input column is %v",
			c.Kind, idx, c.Args.Types[0], input.Fields[idx].DataType)
	}
	if c.Kind == SUM && !c.Args.Types[0].IsNumeric() {
		return common_errors.InvalidAggCall("sum over %v", c.Args.Types[0])
	}
	return nil
}

// ValidateAggCalls requires row_count as the first call, it decides
// whether a group exists.
func ValidateAggCalls(calls []AggCall, input commtypes.Schema) error {
	if len(calls) == 0 || calls[0].Kind != ROW_COUNT {
		return common_errors.InvalidAggCall("the first aggregate call must be row_count")
	}
	for _, c := range calls {
		if err := c.Validate(input); err != nil {
			return err
		}
	}
	return nil
}

// GenerateAggSchema is the output schema of an aggregation: group key
// columns followed by one column per call. groupKeyIndices must be valid
// for input.
func GenerateAggSchema(input commtypes.Schema, calls []AggCall, groupKeyIndices []int) commtypes.Schema {
	fields := make([]commtypes.Field, 0, len(groupKeyIndices)+len(calls))
	for _, idx := range groupKeyIndices {
		fields = append(fields, input.Fields[idx])
	}
	for _, c := range calls {
		fields = append(fields, commtypes.FieldWithName(c.ReturnType, c.String()))
	}
	return commtypes.NewSchema(fields...)
}

// AggInputArrays picks the argument columns of every call out of chunk.
func AggInputArrays(chunk *commtypes.StreamChunk, calls []AggCall) [][]commtypes.Array {
	out := make([][]commtypes.Array, len(calls))
	for i, c := range calls {
		arrs := make([]commtypes.Array, len(c.Args.Indices))
		for j, idx := range c.Args.Indices {
			arrs[j] = chunk.Column(idx)
		}
		out[i] = arrs
	}
	return out
}
