package executor

import (
	"context"

	"github.com/rs/zerolog/log"

	"streamsql/pkg/commtypes"
)

// SimpleExecutor maps each chunk to at most one chunk and keeps no state.
// A nil chunk means nothing to emit.
type SimpleExecutor interface {
	MapFilterChunk(ctx context.Context, chunk *commtypes.StreamChunk) (*commtypes.StreamChunk, error)
	Schema() commtypes.Schema
	PkIndices() commtypes.PkIndices
	Identity() string
}

// SimpleExecutorWrapper drives a SimpleExecutor. Barriers are forwarded
// unchanged without reaching the inner executor.
type SimpleExecutorWrapper struct {
	input  Executor
	inner  SimpleExecutor
	epochs epochTracker
}

var _ = Executor(&SimpleExecutorWrapper{})

func NewSimpleExecutorWrapper(input Executor, inner SimpleExecutor) *SimpleExecutorWrapper {
	return &SimpleExecutorWrapper{input: input, inner: inner}
}

func (w *SimpleExecutorWrapper) Next(ctx context.Context) (commtypes.Message, error) {
	if w.epochs.stopped {
		return commtypes.Message{}, stoppedError(w.Identity())
	}
	for {
		msg, err := w.input.Next(ctx)
		if err != nil {
			return commtypes.Message{}, wrapError(w.Identity(), err)
		}
		if msg.IsBarrier() {
			if err := w.epochs.observe(msg.Barrier()); err != nil {
				return commtypes.Message{}, wrapError(w.Identity(), err)
			}
			if msg.IsStop() {
				log.Debug().Str("identity", w.Identity()).Uint64("epoch", msg.Barrier().Epoch).Msg("stopped")
			}
			return msg, nil
		}
		out, err := w.inner.MapFilterChunk(ctx, msg.Chunk())
		if err != nil {
			return commtypes.Message{}, wrapError(w.Identity(), err)
		}
		if out == nil || out.Cardinality() == 0 {
			continue
		}
		return commtypes.ChunkMessage(out), nil
	}
}

func (w *SimpleExecutorWrapper) Schema() commtypes.Schema {
	return w.inner.Schema()
}

func (w *SimpleExecutorWrapper) PkIndices() commtypes.PkIndices {
	return w.inner.PkIndices()
}

func (w *SimpleExecutorWrapper) Identity() string {
	return w.inner.Identity()
}
