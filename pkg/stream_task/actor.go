package stream_task

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/executor"
	"streamsql/pkg/stats"
)

// Actor pulls from its executor chain and dispatches the output until the
// stop barrier went out.
type Actor struct {
	id         uint32
	consumer   executor.Executor
	dispatcher Dispatcher
	mgr        *LocalBarrierManager
	stats      *stats.ActorStats
}

func NewActor(id uint32, consumer executor.Executor, dispatcher Dispatcher, mgr *LocalBarrierManager) *Actor {
	return &Actor{
		id:         id,
		consumer:   consumer,
		dispatcher: dispatcher,
		mgr:        mgr,
		stats:      stats.NewActorStats(consumer.Identity()),
	}
}

func (a *Actor) ID() uint32 {
	return a.id
}

func (a *Actor) Stats() *stats.ActorStats {
	return a.stats
}

// Run returns nil after forwarding a stop barrier. On failure the outputs
// stay open and the caller is expected to cancel ctx for the other actors.
func (a *Actor) Run(ctx context.Context) error {
	label := strconv.FormatUint(uint64(a.id), 10)
	rowsTotal := stats.ActorRowsTotal.WithLabelValues(label)
	barriersTotal := stats.ActorBarriersTotal.WithLabelValues(label)
	var epochStart time.Time
	for {
		msg, err := a.consumer.Next(ctx)
		if err != nil {
			log.Error().Err(err).Uint32("actor", a.id).Str("identity", a.consumer.Identity()).Msg("actor failed")
			return xerrors.Errorf("actor %d: %w", a.id, err)
		}
		if msg.IsChunk() {
			card := msg.Chunk().Cardinality()
			a.stats.Rows.Tick(uint32(card))
			a.stats.Chunks.Tick(1)
			rowsTotal.Add(float64(card))
			if epochStart.IsZero() {
				epochStart = stats.TimerBegin()
			}
		}
		if err := a.dispatcher.Dispatch(ctx, msg); err != nil {
			return xerrors.Errorf("actor %d dispatch: %w", a.id, err)
		}
		if !msg.IsBarrier() {
			continue
		}
		b := msg.Barrier()
		a.stats.Barriers.Tick(1)
		barriersTotal.Inc()
		a.stats.AddBarrierLatency(stats.Elapsed(epochStart))
		epochStart = time.Time{}
		a.mgr.Collect(ctx, a.id, b)
		if b.IsStop() {
			log.Info().Uint32("actor", a.id).Uint64("epoch", b.Epoch).Msg("actor stopped")
			a.stats.Report()
			a.dispatcher.Close()
			return nil
		}
	}
}
