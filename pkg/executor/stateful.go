package executor

import (
	"context"

	"github.com/rs/zerolog/log"

	"streamsql/pkg/commtypes"
)

// StatefulExecutor accumulates chunks and emits what changed when a barrier
// arrives. FlushData returns nil when nothing changed since the last call.
type StatefulExecutor interface {
	ApplyChunk(ctx context.Context, chunk *commtypes.StreamChunk) error
	FlushData(ctx context.Context) (*commtypes.StreamChunk, error)
	Schema() commtypes.Schema
	PkIndices() commtypes.PkIndices
	Identity() string
}

// StatefulExecutorWrapper drives a StatefulExecutor. On a barrier the
// flushed chunk is returned first and the barrier is held back until the
// following Next, so nothing a barrier depends on can follow it.
type StatefulExecutorWrapper struct {
	input         Executor
	inner         StatefulExecutor
	cachedBarrier *commtypes.Barrier
	epochs        epochTracker
	emittedStop   bool
}

var _ = Executor(&StatefulExecutorWrapper{})

func NewStatefulExecutorWrapper(input Executor, inner StatefulExecutor) *StatefulExecutorWrapper {
	return &StatefulExecutorWrapper{input: input, inner: inner}
}

func (w *StatefulExecutorWrapper) emitBarrier(b *commtypes.Barrier) commtypes.Message {
	if b.IsStop() {
		w.emittedStop = true
		log.Debug().Str("identity", w.Identity()).Uint64("epoch", b.Epoch).Msg("stopped")
	}
	return commtypes.BarrierMessage(b)
}

func (w *StatefulExecutorWrapper) Next(ctx context.Context) (commtypes.Message, error) {
	if w.emittedStop {
		return commtypes.Message{}, stoppedError(w.Identity())
	}
	if w.cachedBarrier != nil {
		b := w.cachedBarrier
		w.cachedBarrier = nil
		return w.emitBarrier(b), nil
	}
	for {
		msg, err := w.input.Next(ctx)
		if err != nil {
			return commtypes.Message{}, wrapError(w.Identity(), err)
		}
		if msg.IsChunk() {
			if err := w.inner.ApplyChunk(ctx, msg.Chunk()); err != nil {
				return commtypes.Message{}, wrapError(w.Identity(), err)
			}
			continue
		}
		b := msg.Barrier()
		if err := w.epochs.observe(b); err != nil {
			return commtypes.Message{}, wrapError(w.Identity(), err)
		}
		out, err := w.inner.FlushData(ctx)
		if err != nil {
			return commtypes.Message{}, wrapError(w.Identity(), err)
		}
		if out != nil && out.Cardinality() > 0 {
			w.cachedBarrier = b
			return commtypes.ChunkMessage(out), nil
		}
		return w.emitBarrier(b), nil
	}
}

func (w *StatefulExecutorWrapper) Schema() commtypes.Schema {
	return w.inner.Schema()
}

func (w *StatefulExecutorWrapper) PkIndices() commtypes.PkIndices {
	return w.inner.PkIndices()
}

func (w *StatefulExecutorWrapper) Identity() string {
	return w.inner.Identity()
}
