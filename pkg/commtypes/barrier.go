package commtypes

import "fmt"

type MutationKind uint8

const (
	MUTATION_STOP MutationKind = iota
)

// Mutation is the control payload of a barrier. The barrier of a normal
// checkpoint tick has no mutation.
type Mutation struct {
	Kind MutationKind
	// Actors to stop. Empty means every actor that sees the barrier.
	Actors []uint32
}

type Barrier struct {
	Epoch    uint64
	Mutation *Mutation
}

func NewBarrier(epoch uint64) *Barrier {
	return &Barrier{Epoch: epoch}
}

func NewStopBarrier(epoch uint64, actors ...uint32) *Barrier {
	return &Barrier{Epoch: epoch, Mutation: &Mutation{Kind: MUTATION_STOP, Actors: actors}}
}

func (b *Barrier) IsStop() bool {
	return b.Mutation != nil && b.Mutation.Kind == MUTATION_STOP
}

// IsStopActor reports whether the barrier stops the given actor.
func (b *Barrier) IsStopActor(actorID uint32) bool {
	if !b.IsStop() {
		return false
	}
	if len(b.Mutation.Actors) == 0 {
		return true
	}
	for _, id := range b.Mutation.Actors {
		if id == actorID {
			return true
		}
	}
	return false
}

func (b *Barrier) String() string {
	if b.IsStop() {
		return fmt.Sprintf("Barrier{epoch: %d, stop: %v}", b.Epoch, b.Mutation.Actors)
	}
	return fmt.Sprintf("Barrier{epoch: %d}", b.Epoch)
}
