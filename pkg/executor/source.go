package executor

import (
	"context"
	"fmt"

	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

// SourceExecutor emits chunks produced by a connector together with the
// barriers injected by the barrier manager. A pending barrier always goes
// out before the next chunk.
type SourceExecutor struct {
	baseExecutor
	chunks   <-chan *commtypes.StreamChunk
	barriers <-chan *commtypes.Barrier
	epochs   epochTracker
}

var _ = Executor(&SourceExecutor{})

// NewSourceExecutor reads chunks until the channel is closed and barriers
// until a stop barrier arrives.
func NewSourceExecutor(schema commtypes.Schema, pkIndices commtypes.PkIndices,
	chunks <-chan *commtypes.StreamChunk, barriers <-chan *commtypes.Barrier, executorID uint64,
) *SourceExecutor {
	return &SourceExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    schema,
			PkIndices: pkIndices,
			Identity:  fmt.Sprintf("SourceExecutor %X", executorID),
		}},
		chunks:   chunks,
		barriers: barriers,
	}
}

func (s *SourceExecutor) barrierMessage(b *commtypes.Barrier, ok bool) (commtypes.Message, error) {
	if !ok {
		return commtypes.Message{}, wrapError(s.Identity(),
			xerrors.Errorf("barrier channel closed before stop: %w", common_errors.ErrChannelClosed))
	}
	if err := s.epochs.observe(b); err != nil {
		return commtypes.Message{}, wrapError(s.Identity(), err)
	}
	return commtypes.BarrierMessage(b), nil
}

func (s *SourceExecutor) Next(ctx context.Context) (commtypes.Message, error) {
	if s.epochs.stopped {
		return commtypes.Message{}, stoppedError(s.Identity())
	}
	for {
		select {
		case b, ok := <-s.barriers:
			return s.barrierMessage(b, ok)
		default:
		}
		select {
		case <-ctx.Done():
			return commtypes.Message{}, wrapError(s.Identity(), ctx.Err())
		case b, ok := <-s.barriers:
			return s.barrierMessage(b, ok)
		case c, ok := <-s.chunks:
			if !ok {
				// reading from a nil channel blocks, so only barriers remain
				s.chunks = nil
				continue
			}
			if c.Cardinality() == 0 {
				continue
			}
			return commtypes.ChunkMessage(c), nil
		}
	}
}
