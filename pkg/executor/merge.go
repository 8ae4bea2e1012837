package executor

import (
	"context"
	"fmt"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
)

type inputMsg struct {
	idx int
	msg commtypes.Message
	err error
}

// MergeExecutor unions several inputs of the same schema and aligns their
// barriers. Once the barrier of an epoch arrived on an input, later
// messages of that input are held until every input delivered the same
// barrier. Chunks of different inputs are interleaved in arrival order.
type MergeExecutor struct {
	baseExecutor
	inputs  []Executor
	started bool
	recv    chan inputMsg
	cancel  context.CancelFunc

	current  *commtypes.Barrier
	arrived  []bool
	nArrived int
	buffers  []*deque.Deque[commtypes.Message]
	output   *deque.Deque[commtypes.Message]
	epochs   epochTracker
}

var _ = Executor(&MergeExecutor{})

func NewMergeExecutor(inputs []Executor, executorID uint64) (*MergeExecutor, error) {
	if len(inputs) == 0 {
		return nil, common_errors.SchemaViolation("merge without inputs")
	}
	schema := inputs[0].Schema()
	for _, in := range inputs[1:] {
		if in.Schema().Len() != schema.Len() {
			return nil, common_errors.SchemaViolation("merge input %s has schema %v, expected %v",
				in.Identity(), in.Schema(), schema)
		}
	}
	buffers := make([]*deque.Deque[commtypes.Message], len(inputs))
	for i := range buffers {
		buffers[i] = deque.New[commtypes.Message]()
	}
	return &MergeExecutor{
		baseExecutor: baseExecutor{info: ExecutorInfo{
			Schema:    schema,
			PkIndices: inputs[0].PkIndices(),
			Identity:  fmt.Sprintf("MergeExecutor %X", executorID),
		}},
		inputs:  inputs,
		recv:    make(chan inputMsg, len(inputs)),
		arrived: make([]bool, len(inputs)),
		buffers: buffers,
		output:  deque.New[commtypes.Message](),
	}, nil
}

// pull forwards messages of one input until its stop barrier or an error.
func (m *MergeExecutor) pull(ctx context.Context, idx int) {
	for {
		msg, err := m.inputs[idx].Next(ctx)
		select {
		case m.recv <- inputMsg{idx: idx, msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil || msg.IsStop() {
			return
		}
	}
}

func (m *MergeExecutor) start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	for i := range m.inputs {
		go m.pull(ctx, i)
	}
	m.started = true
}

// process routes one message of input idx into the output queue or the
// input's alignment buffer.
func (m *MergeExecutor) process(idx int, msg commtypes.Message) error {
	if m.arrived[idx] {
		m.buffers[idx].PushBack(msg)
		return nil
	}
	if msg.IsChunk() {
		m.output.PushBack(msg)
		return nil
	}
	b := msg.Barrier()
	if m.current == nil {
		m.current = b
	} else if b.Epoch != m.current.Epoch {
		return common_errors.InvalidBarrier("input %d sent epoch %d while aligning epoch %d",
			idx, b.Epoch, m.current.Epoch)
	}
	m.arrived[idx] = true
	m.nArrived++
	if m.nArrived < len(m.inputs) {
		return nil
	}
	return m.completeAlignment()
}

func (m *MergeExecutor) completeAlignment() error {
	aligned := m.current
	if err := m.epochs.observe(aligned); err != nil {
		return err
	}
	log.Trace().Str("identity", m.Identity()).Uint64("epoch", aligned.Epoch).Msg("barrier aligned")
	m.output.PushBack(commtypes.BarrierMessage(aligned))
	m.current = nil
	m.nArrived = 0
	for i := range m.arrived {
		m.arrived[i] = false
	}
	if aligned.IsStop() {
		return nil
	}
	held := m.buffers
	m.buffers = make([]*deque.Deque[commtypes.Message], len(held))
	for i := range m.buffers {
		m.buffers[i] = deque.New[commtypes.Message]()
	}
	for idx, q := range held {
		for q.Len() > 0 {
			if err := m.process(idx, q.PopFront()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MergeExecutor) Next(ctx context.Context) (commtypes.Message, error) {
	if m.epochs.stopped && m.output.Len() == 0 {
		return commtypes.Message{}, stoppedError(m.Identity())
	}
	if !m.started {
		m.start(ctx)
	}
	for m.output.Len() == 0 {
		var in inputMsg
		select {
		case in = <-m.recv:
		case <-ctx.Done():
			return commtypes.Message{}, wrapError(m.Identity(), ctx.Err())
		}
		if in.err != nil {
			m.cancel()
			return commtypes.Message{}, wrapError(m.Identity(), in.err)
		}
		if err := m.process(in.idx, in.msg); err != nil {
			m.cancel()
			return commtypes.Message{}, wrapError(m.Identity(), err)
		}
	}
	msg := m.output.PopFront()
	if msg.IsStop() {
		m.cancel()
	}
	return msg, nil
}
