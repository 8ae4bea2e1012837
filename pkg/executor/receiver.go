package executor

import (
	"context"
	"fmt"

	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

// ReceiverExecutor reads the messages an upstream actor dispatched to this
// actor.
type ReceiverExecutor struct {
	baseExecutor
	ch     <-chan commtypes.Message
	epochs epochTracker
}

var _ = Executor(&ReceiverExecutor{})

func NewReceiverExecutor(schema commtypes.Schema, pkIndices commtypes.PkIndices,
	ch <-chan commtypes.Message, executorID uint64,
) *ReceiverExecutor {
	return &ReceiverExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    schema,
			PkIndices: pkIndices,
			Identity:  fmt.Sprintf("ReceiverExecutor %X", executorID),
		}},
		ch: ch,
	}
}

func (r *ReceiverExecutor) Next(ctx context.Context) (commtypes.Message, error) {
	if r.epochs.stopped {
		return commtypes.Message{}, stoppedError(r.Identity())
	}
	select {
	case <-ctx.Done():
		return commtypes.Message{}, wrapError(r.Identity(), ctx.Err())
	case msg, ok := <-r.ch:
		if !ok {
			return commtypes.Message{}, wrapError(r.Identity(),
				xerrors.Errorf("upstream closed before stop: %w", common_errors.ErrChannelClosed))
		}
		if msg.IsBarrier() {
			if err := r.epochs.observe(msg.Barrier()); err != nil {
				return commtypes.Message{}, wrapError(r.Identity(), err)
			}
		}
		return msg, nil
	}
}
