package executor

import (
	"context"
	"fmt"

	"streamsql/pkg/commtypes"
	"streamsql/pkg/expr"
)

type ProjectExecutor struct {
	baseExecutor
	exprs []expr.Expression
}

var _ = SimpleExecutor(&ProjectExecutor{})

// NewProjectExecutor evaluates exprs over every input chunk. The output
// schema has one unnamed column per expression.
func NewProjectExecutor(input Executor, pkIndices commtypes.PkIndices, exprs []expr.Expression, executorID uint64) (*SimpleExecutorWrapper, error) {
	fields := make([]commtypes.Field, len(exprs))
	for i, e := range exprs {
		if err := expr.CheckInputRefs(e, input.Schema()); err != nil {
			return nil, err
		}
		fields[i] = commtypes.FieldUnnamed(e.ReturnType())
	}
	p := &ProjectExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    commtypes.NewSchema(fields...),
			PkIndices: pkIndices,
			Identity:  fmt.Sprintf("ProjectExecutor %X", executorID),
		}},
		exprs: exprs,
	}
	return NewSimpleExecutorWrapper(input, p), nil
}

func (p *ProjectExecutor) MapFilterChunk(ctx context.Context, chunk *commtypes.StreamChunk) (*commtypes.StreamChunk, error) {
	compacted, err := chunk.Compact()
	if err != nil {
		return nil, err
	}
	cols := make([]commtypes.Array, len(p.exprs))
	for i, e := range p.exprs {
		cols[i], err = expr.Eval(e, compacted)
		if err != nil {
			return nil, err
		}
	}
	return commtypes.NewStreamChunk(compacted.Ops(), cols, nil)
}
