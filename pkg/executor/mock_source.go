package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"streamsql/pkg/commtypes"
)

// MockSource replays a fixed list of messages and then stops with a barrier
// one epoch past the last one it sent.
type MockSource struct {
	baseExecutor
	msgs   []commtypes.Message
	pos    int
	epochs epochTracker
}

var _ = Executor(&MockSource{})

var mockSourceID atomic.Uint64

func NewMockSource(schema commtypes.Schema, pkIndices commtypes.PkIndices, msgs ...commtypes.Message) *MockSource {
	return &MockSource{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    schema,
			PkIndices: pkIndices,
			Identity:  fmt.Sprintf("MockSource %X", mockSourceID.Add(1)),
		}},
		msgs: msgs,
	}
}

func (m *MockSource) Push(msg commtypes.Message) {
	m.msgs = append(m.msgs, msg)
}

func (m *MockSource) PushChunk(c *commtypes.StreamChunk) {
	m.Push(commtypes.ChunkMessage(c))
}

func (m *MockSource) PushBarrier(epoch uint64, stop bool) {
	if stop {
		m.Push(commtypes.BarrierMessage(commtypes.NewStopBarrier(epoch)))
	} else {
		m.Push(commtypes.BarrierMessage(commtypes.NewBarrier(epoch)))
	}
}

func (m *MockSource) Next(ctx context.Context) (commtypes.Message, error) {
	if m.epochs.stopped {
		return commtypes.Message{}, stoppedError(m.Identity())
	}
	var msg commtypes.Message
	if m.pos < len(m.msgs) {
		msg = m.msgs[m.pos]
		m.pos++
	} else {
		msg = commtypes.BarrierMessage(commtypes.NewStopBarrier(m.epochs.last + 1))
	}
	if msg.IsBarrier() {
		if err := m.epochs.observe(msg.Barrier()); err != nil {
			return commtypes.Message{}, wrapError(m.Identity(), err)
		}
	}
	return msg, nil
}
