package executor

import (
	"context"
	"fmt"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/expr"
)

// FilterExecutor hides rows whose condition is not true. Columns are kept
// as is and only the visibility changes.
type FilterExecutor struct {
	baseExecutor
	cond expr.Expression
}

var _ = SimpleExecutor(&FilterExecutor{})

func NewFilterExecutor(input Executor, cond expr.Expression, executorID uint64) (*SimpleExecutorWrapper, error) {
	if cond.ReturnType().Kind != commtypes.BOOLEAN {
		return nil, common_errors.EvalError("filter condition %v is %v", cond, cond.ReturnType())
	}
	if err := expr.CheckInputRefs(cond, input.Schema()); err != nil {
		return nil, err
	}
	f := &FilterExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    input.Schema(),
			PkIndices: input.PkIndices(),
			Identity:  fmt.Sprintf("FilterExecutor %X", executorID),
		}},
		cond: cond,
	}
	return NewSimpleExecutorWrapper(input, f), nil
}

func (f *FilterExecutor) MapFilterChunk(ctx context.Context, chunk *commtypes.StreamChunk) (*commtypes.StreamChunk, error) {
	bits := make([]bool, chunk.Capacity())
	for i := range bits {
		if !chunk.IsVisible(i) {
			continue
		}
		d, err := f.cond.EvalRow(chunk.RowAt(i))
		if err != nil {
			return nil, err
		}
		b, ok := d.(bool)
		bits[i] = ok && b
	}
	vis := commtypes.NewBitmap(bits)
	if vis.CountOnes() == 0 {
		return nil, nil
	}
	ops := commtypes.NormalizeUpdatePairs(chunk.Ops(), vis)
	return commtypes.NewStreamChunk(ops, chunk.Columns(), vis)
}
