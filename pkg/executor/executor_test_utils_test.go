package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"streamsql/pkg/commtypes"
)

var (
	i64Type   = commtypes.Int64Type(false)
	twoI64Sch = commtypes.NewSchema(commtypes.FieldUnnamed(i64Type), commtypes.FieldUnnamed(i64Type))
)

func i64Chunk(t *testing.T, ops []commtypes.Op, vis *commtypes.Bitmap, cols ...[]int64) *commtypes.StreamChunk {
	t.Helper()
	arrs := make([]commtypes.Array, len(cols))
	for i, c := range cols {
		arrs[i] = commtypes.NewI64Array(c...)
	}
	chunk, err := commtypes.NewStreamChunk(ops, arrs, vis)
	require.NoError(t, err)
	return chunk
}

// collect drains e until its stop barrier.
func collect(t *testing.T, e Executor) []commtypes.Message {
	t.Helper()
	ctx := context.Background()
	var out []commtypes.Message
	for {
		msg, err := e.Next(ctx)
		require.NoError(t, err)
		out = append(out, msg)
		if msg.IsStop() {
			return out
		}
	}
}

func barrierEpochs(msgs []commtypes.Message) []uint64 {
	var epochs []uint64
	for _, m := range msgs {
		if m.IsBarrier() {
			epochs = append(epochs, m.Barrier().Epoch)
		}
	}
	return epochs
}

// rawSource replays messages without checking them, to feed malformed
// streams into an executor.
type rawSource struct {
	baseExecutor
	msgs []commtypes.Message
}

func newRawSource(schema commtypes.Schema, msgs ...commtypes.Message) *rawSource {
	return &rawSource{
		baseExecutor: baseExecutor{info: ExecutorInfo{Schema: schema, Identity: "RawSource"}},
		msgs:         msgs,
	}
}

func (r *rawSource) Next(ctx context.Context) (commtypes.Message, error) {
	if len(r.msgs) == 0 {
		return commtypes.Message{}, stoppedError(r.Identity())
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}
