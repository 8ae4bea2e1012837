package commtypes

import "fmt"

type MsgKind uint8

const (
	CHUNK_MSG MsgKind = iota
	BARRIER_MSG
)

// Message is what flows on every executor-to-executor edge: either a chunk
// or a barrier, never both.
type Message struct {
	kind    MsgKind
	chunk   *StreamChunk
	barrier *Barrier
}

var _ = fmt.Stringer(Message{})

func ChunkMessage(chunk *StreamChunk) Message {
	return Message{kind: CHUNK_MSG, chunk: chunk}
}

func BarrierMessage(barrier *Barrier) Message {
	return Message{kind: BARRIER_MSG, barrier: barrier}
}

func (m Message) Kind() MsgKind {
	return m.kind
}

func (m Message) IsChunk() bool {
	return m.kind == CHUNK_MSG
}

func (m Message) IsBarrier() bool {
	return m.kind == BARRIER_MSG
}

func (m Message) IsStop() bool {
	return m.kind == BARRIER_MSG && m.barrier.IsStop()
}

func (m Message) Chunk() *StreamChunk {
	return m.chunk
}

func (m Message) Barrier() *Barrier {
	return m.barrier
}

func (m Message) String() string {
	if m.kind == BARRIER_MSG {
		return fmt.Sprintf("Msg: {%v}", m.barrier)
	}
	return fmt.Sprintf("Msg: {%v}", m.chunk)
}
