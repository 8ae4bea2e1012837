package stream_task

import (
	"context"

	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/hashfuncs"
)

// Output is the channel feeding the receiver of one downstream actor.
type Output struct {
	ActorID uint32
	Ch      chan<- commtypes.Message
}

// Dispatcher routes the messages of an actor to its downstream actors.
// Barriers always reach every output.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg commtypes.Message) error
	// Close is called once the actor sent its stop barrier or failed.
	Close()
}

func send(ctx context.Context, out Output, msg commtypes.Message) error {
	select {
	case out.Ch <- msg:
		return nil
	case <-ctx.Done():
		return xerrors.Errorf("send to actor %d: %w", out.ActorID, ctx.Err())
	}
}

func closeOutputs(outputs []Output) {
	for _, out := range outputs {
		close(out.Ch)
	}
}

// SimpleDispatcher forwards everything to its only output.
type SimpleDispatcher struct {
	output Output
}

var _ = Dispatcher(&SimpleDispatcher{})

func NewSimpleDispatcher(output Output) *SimpleDispatcher {
	return &SimpleDispatcher{output: output}
}

func (d *SimpleDispatcher) Dispatch(ctx context.Context, msg commtypes.Message) error {
	return send(ctx, d.output, msg)
}

func (d *SimpleDispatcher) Close() {
	close(d.output.Ch)
}

// BroadcastDispatcher copies every message to all outputs.
type BroadcastDispatcher struct {
	outputs []Output
}

var _ = Dispatcher(&BroadcastDispatcher{})

func NewBroadcastDispatcher(outputs []Output) *BroadcastDispatcher {
	return &BroadcastDispatcher{outputs: outputs}
}

func (d *BroadcastDispatcher) Dispatch(ctx context.Context, msg commtypes.Message) error {
	for _, out := range d.outputs {
		if err := send(ctx, out, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *BroadcastDispatcher) Close() {
	closeOutputs(d.outputs)
}

// HashDispatcher partitions rows by the vnode of their key columns. Every
// output gets the chunk columns under its own visibility mask. An update
// pair whose halves land on different outputs turns into a Delete on one
// side and an Insert on the other.
type HashDispatcher struct {
	outputs []Output
	hasher  hashfuncs.RowHasher
	// vnodeOwner maps a vnode to the index of its output.
	vnodeOwner []int
}

var _ = Dispatcher(&HashDispatcher{})

// NewHashDispatcher routes every row by the key columns of schema at
// keyIndices.
func NewHashDispatcher(outputs []Output, schema commtypes.Schema, keyIndices []int) (*HashDispatcher, error) {
	if len(outputs) == 0 {
		return nil, common_errors.SchemaViolation("hash dispatcher without outputs")
	}
	if err := schema.CheckIndices(keyIndices); err != nil {
		return nil, err
	}
	owner := make([]int, hashfuncs.VNODE_COUNT)
	for vnode := range owner {
		owner[vnode] = vnode % len(outputs)
	}
	return &HashDispatcher{
		outputs:    outputs,
		hasher:     hashfuncs.RowHasher{Indices: keyIndices},
		vnodeOwner: owner,
	}, nil
}

func (d *HashDispatcher) Dispatch(ctx context.Context, msg commtypes.Message) error {
	if msg.IsBarrier() {
		for _, out := range d.outputs {
			if err := send(ctx, out, msg); err != nil {
				return err
			}
		}
		return nil
	}
	chunk := msg.Chunk()
	n := chunk.Capacity()
	bits := make([][]bool, len(d.outputs))
	for i := range bits {
		bits[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		if !chunk.IsVisible(i) {
			continue
		}
		owner := d.vnodeOwner[d.hasher.VnodeOf(chunk.RowAt(i))]
		bits[owner][i] = true
	}
	for idx, out := range d.outputs {
		vis := commtypes.NewBitmap(bits[idx])
		if vis.CountOnes() == 0 {
			continue
		}
		part, err := commtypes.NewStreamChunk(commtypes.NormalizeUpdatePairs(chunk.Ops(), vis), chunk.Columns(), vis)
		if err != nil {
			return err
		}
		if err := send(ctx, out, commtypes.ChunkMessage(part)); err != nil {
			return err
		}
	}
	return nil
}

func (d *HashDispatcher) Close() {
	closeOutputs(d.outputs)
}

// SinkDispatcher hands chunks to a callback and drops barriers. It ends a
// graph.
type SinkDispatcher struct {
	sink func(ctx context.Context, chunk *commtypes.StreamChunk) error
}

var _ = Dispatcher(&SinkDispatcher{})

func NewSinkDispatcher(sink func(ctx context.Context, chunk *commtypes.StreamChunk) error) *SinkDispatcher {
	return &SinkDispatcher{sink: sink}
}

func (d *SinkDispatcher) Dispatch(ctx context.Context, msg commtypes.Message) error {
	if msg.IsChunk() {
		return d.sink(ctx, msg.Chunk())
	}
	return nil
}

func (d *SinkDispatcher) Close() {}
