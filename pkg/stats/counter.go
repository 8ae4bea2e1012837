package stats

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	tag   string
	count uint64
}

func NewCounter(tag string) Counter {
	return Counter{
		tag:   tag,
		count: 0,
	}
}

func (c *Counter) GetCount() uint64 {
	return c.count
}

type AtomicCounter struct {
	tag   string
	count atomic.Uint64
}

func NewAtomicCounter(tag string) *AtomicCounter {
	return &AtomicCounter{tag: tag}
}

func (c *AtomicCounter) GetCount() uint64 {
	return c.count.Load()
}

// ActorStats tracks what one actor pushed downstream.
type ActorStats struct {
	Rows       Counter
	Chunks     Counter
	Barriers   Counter
	barrierLat time.Duration
}

func NewActorStats(identity string) *ActorStats {
	return &ActorStats{
		Rows:     NewCounter(identity + "_rows"),
		Chunks:   NewCounter(identity + "_chunks"),
		Barriers: NewCounter(identity + "_barriers"),
	}
}

// AddBarrierLatency records the time between an epoch's first chunk and
// its barrier leaving the actor.
func (s *ActorStats) AddBarrierLatency(d time.Duration) {
	s.barrierLat += d
}

func (s *ActorStats) BarrierLatency() time.Duration {
	return s.barrierLat
}
