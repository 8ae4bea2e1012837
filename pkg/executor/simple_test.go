package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/expr"
)

func addExpr(t *testing.T) expr.Expression {
	t.Helper()
	e, err := expr.NewBinary(expr.ADD, expr.NewInputRef(0, i64Type), expr.NewInputRef(1, i64Type))
	require.NoError(t, err)
	return e
}

func TestProjectForwardsBarriersUnchanged(t *testing.T) {
	src := NewMockSource(twoI64Sch, nil)
	src.PushBarrier(1, false)
	src.PushChunk(i64Chunk(t, []commtypes.Op{commtypes.INSERT, commtypes.DELETE},
		commtypes.NewBitmap([]bool{false, true}), []int64{1, 2}, []int64{10, 20}))
	src.PushBarrier(2, false)
	src.PushBarrier(3, false)
	src.PushChunk(i64Chunk(t, []commtypes.Op{commtypes.INSERT}, nil, []int64{5}, []int64{5}))
	src.PushBarrier(4, true)

	project, err := NewProjectExecutor(src, nil, []expr.Expression{addExpr(t), expr.NewInputRef(0, i64Type)}, 2)
	require.NoError(t, err)
	assert.Equal(t, "ProjectExecutor 2", project.Identity())
	msgs := collect(t, project)
	assert.Equal(t, []uint64{1, 2, 3, 4}, barrierEpochs(msgs))

	require.True(t, msgs[1].IsChunk())
	chunk := msgs[1].Chunk()
	assert.Nil(t, chunk.Visibility())
	assert.Equal(t, []commtypes.OpRow{{Op: commtypes.DELETE, Row: commtypes.Row{int64(22), int64(2)}}}, chunk.Rows())
	assert.True(t, msgs[len(msgs)-1].IsStop())
}

func TestProjectEvalErrorPropagates(t *testing.T) {
	div, err := expr.NewBinary(expr.DIV, expr.NewInputRef(0, i64Type), expr.NewInputRef(1, i64Type))
	require.NoError(t, err)
	src := NewMockSource(twoI64Sch, nil)
	src.PushChunk(i64Chunk(t, []commtypes.Op{commtypes.INSERT}, nil, []int64{1}, []int64{0}))
	project, err := NewProjectExecutor(src, nil, []expr.Expression{div}, 7)
	require.NoError(t, err)

	_, err = project.Next(context.Background())
	require.Error(t, err)
	assert.True(t, common_errors.IsEvalError(err))
	var execErr *ExecutorError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, EVAL, execErr.Kind)
	assert.Equal(t, "ProjectExecutor 7", execErr.Identity)
}

func TestFilterSplitsUpdatePairs(t *testing.T) {
	cond, err := expr.NewBinary(expr.GT, expr.NewInputRef(0, i64Type), mustLiteral(t, int64(5)))
	require.NoError(t, err)
	src := NewMockSource(twoI64Sch, nil)
	src.PushChunk(i64Chunk(t,
		[]commtypes.Op{commtypes.UPDATE_DELETE, commtypes.UPDATE_INSERT, commtypes.UPDATE_DELETE, commtypes.UPDATE_INSERT, commtypes.INSERT},
		nil, []int64{1, 9, 8, 2, 3}, []int64{0, 0, 0, 0, 0}))
	src.PushChunk(i64Chunk(t, []commtypes.Op{commtypes.INSERT}, nil, []int64{1}, []int64{0}))
	filter, err := NewFilterExecutor(src, cond, 3)
	require.NoError(t, err)
	msgs := collect(t, filter)

	// the second chunk is filtered out entirely and never emitted
	require.Len(t, msgs, 2)
	chunk := msgs[0].Chunk()
	assert.Equal(t, 2, chunk.Cardinality())
	rows := chunk.Rows()
	assert.Equal(t, commtypes.INSERT, rows[0].Op)
	assert.Equal(t, int64(9), rows[0].Row[0])
	assert.Equal(t, commtypes.DELETE, rows[1].Op)
	assert.Equal(t, int64(8), rows[1].Row[0])
	assert.True(t, msgs[1].IsStop())
}

func TestFilterRejectsNonBoolean(t *testing.T) {
	src := NewMockSource(twoI64Sch, nil)
	_, err := NewFilterExecutor(src, expr.NewInputRef(0, i64Type), 1)
	assert.True(t, common_errors.IsEvalError(err))
}

func mustLiteral(t *testing.T, v commtypes.Datum) expr.Expression {
	t.Helper()
	l, err := expr.NewLiteral(v, i64Type)
	require.NoError(t, err)
	return l
}

func TestProjectRejectsOutOfRangeColumn(t *testing.T) {
	src := NewMockSource(twoI64Sch, nil)
	_, err := NewProjectExecutor(src, nil, []expr.Expression{expr.NewInputRef(5, i64Type)}, 1)
	require.Error(t, err)
	assert.True(t, common_errors.IsSchemaViolation(err))
}

func TestFilterRejectsOutOfRangeColumn(t *testing.T) {
	cond, err := expr.NewBinary(expr.GT, expr.NewInputRef(2, i64Type), mustLiteral(t, int64(5)))
	require.NoError(t, err)
	_, err = NewFilterExecutor(NewMockSource(twoI64Sch, nil), cond, 1)
	require.Error(t, err)
	assert.True(t, common_errors.IsSchemaViolation(err))
}
