package common_errors

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	ErrSchemaViolation  = xerrors.New("schema violation")
	ErrStateStore       = xerrors.New("state store error")
	ErrEval             = xerrors.New("expression evaluation error")
	ErrInvalidBarrier   = xerrors.New("invalid barrier")
	ErrStreamStopped    = xerrors.New("stream already stopped")
	ErrInvalidAggCall   = xerrors.New("invalid aggregation call")
	ErrChannelClosed    = xerrors.New("upstream channel closed before stop barrier")
	ErrDecode           = xerrors.New("fail to decode")
	ErrStoreNotOpen     = xerrors.New("store not open")
	ErrSnapshotNotFound = xerrors.New("snapshot not found")
)

// StoreError keeps the underlying store failure reachable through Unwrap
// while still matching ErrStateStore.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%v: %v", ErrStateStore, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStateStore
}

func SchemaViolation(format string, a ...interface{}) error {
	return xerrors.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrSchemaViolation)
}

func StateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if xerrors.Is(err, ErrStateStore) {
		return err
	}
	return &StoreError{Err: err}
}

func EvalError(format string, a ...interface{}) error {
	return xerrors.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrEval)
}

func InvalidBarrier(format string, a ...interface{}) error {
	return xerrors.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrInvalidBarrier)
}

func InvalidAggCall(format string, a ...interface{}) error {
	return xerrors.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrInvalidAggCall)
}

func IsSchemaViolation(err error) bool {
	return xerrors.Is(err, ErrSchemaViolation)
}

func IsStateStoreError(err error) bool {
	return xerrors.Is(err, ErrStateStore)
}

func IsEvalError(err error) bool {
	return xerrors.Is(err, ErrEval)
}

func IsStreamStopped(err error) bool {
	return xerrors.Is(err, ErrStreamStopped)
}
