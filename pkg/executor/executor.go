package executor

import (
	"context"
	"fmt"

	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

// Executor is one node of a streaming dataflow. Next blocks until the next
// message is available. After a stop barrier is returned, Next returns
// common_errors.ErrStreamStopped.
type Executor interface {
	Next(ctx context.Context) (commtypes.Message, error)
	Schema() commtypes.Schema
	PkIndices() commtypes.PkIndices
	Identity() string
}

type ExecutorInfo struct {
	Schema    commtypes.Schema
	PkIndices commtypes.PkIndices
	Identity  string
}

// baseExecutor provides the identity part of Executor.
type baseExecutor struct {
	info ExecutorInfo
}

func (b *baseExecutor) Schema() commtypes.Schema {
	return b.info.Schema
}

func (b *baseExecutor) PkIndices() commtypes.PkIndices {
	return b.info.PkIndices
}

func (b *baseExecutor) Identity() string {
	return b.info.Identity
}

type ErrorKind uint8

const (
	INTERNAL ErrorKind = iota
	SCHEMA_VIOLATION
	STATE_STORE
	EVAL
	INVALID_BARRIER
	STREAM_STOPPED
	CHANNEL_CLOSED
	INVALID_AGG_CALL
)

var errorKindNames = [...]string{
	"internal", "schema violation", "state store", "eval",
	"invalid barrier", "stream stopped", "channel closed", "invalid agg call",
}

func (k ErrorKind) String() string {
	return errorKindNames[k]
}

// ExecutorError is the error returned by every executor. It records the
// executor that failed first.
type ExecutorError struct {
	Kind     ErrorKind
	Identity string
	Err      error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s: %v error: %v", e.Identity, e.Kind, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

func classify(err error) ErrorKind {
	switch {
	case xerrors.Is(err, common_errors.ErrSchemaViolation):
		return SCHEMA_VIOLATION
	case xerrors.Is(err, common_errors.ErrStateStore):
		return STATE_STORE
	case xerrors.Is(err, common_errors.ErrEval):
		return EVAL
	case xerrors.Is(err, common_errors.ErrInvalidBarrier):
		return INVALID_BARRIER
	case xerrors.Is(err, common_errors.ErrStreamStopped):
		return STREAM_STOPPED
	case xerrors.Is(err, common_errors.ErrChannelClosed):
		return CHANNEL_CLOSED
	case xerrors.Is(err, common_errors.ErrInvalidAggCall):
		return INVALID_AGG_CALL
	default:
		return INTERNAL
	}
}

// wrapError attaches identity to err unless an executor closer to the
// failure already did.
func wrapError(identity string, err error) error {
	if err == nil {
		return nil
	}
	var execErr *ExecutorError
	if xerrors.As(err, &execErr) {
		return err
	}
	return &ExecutorError{Kind: classify(err), Identity: identity, Err: err}
}

// epochTracker rejects barriers whose epoch does not increase.
type epochTracker struct {
	last    uint64
	seen    bool
	stopped bool
}

func (t *epochTracker) observe(b *commtypes.Barrier) error {
	if t.seen && b.Epoch <= t.last {
		return common_errors.InvalidBarrier("epoch %d after epoch %d", b.Epoch, t.last)
	}
	t.last = b.Epoch
	t.seen = true
	if b.IsStop() {
		t.stopped = true
	}
	return nil
}

func stoppedError(identity string) error {
	return wrapError(identity, xerrors.Errorf("next after stop: %w", common_errors.ErrStreamStopped))
}
