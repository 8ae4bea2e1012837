package stream_task

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zhangyunhao116/skipset"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/snapshot_store"
	"streamsql/pkg/state_store"
	"streamsql/pkg/stats"
	"streamsql/pkg/utils/syncutils"
)

const barrierChannelBuffer = 1

// EpochCompletion is done once every actor of the graph collected the
// barrier of Epoch.
type EpochCompletion struct {
	Epoch uint64
	done  chan struct{}
	err   error
}

func (c *EpochCompletion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the epoch completed and returns the error of the
// snapshot export, or the error that aborted the graph.
func (c *EpochCompletion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type epochState struct {
	barrier    *commtypes.Barrier
	remaining  *skipset.Uint32Set
	injected   time.Time
	completion *EpochCompletion
}

type snapshotExport struct {
	changelog *state_store.ChangelogStateStore
	ss        snapshot_store.SnapshotStore
	name      string
}

// LocalBarrierManager injects barriers into the sources of a graph and
// tracks which actors collected them. Any stop barrier stops the whole
// graph.
type LocalBarrierManager struct {
	mux       syncutils.Mutex
	senders   map[uint32]chan *commtypes.Barrier
	actors    []uint32
	pending   map[uint64]*epochState
	lastEpoch uint64
	injected  bool
	stopped   bool
	abortErr  error
	snapshot  *snapshotExport
	completed *stats.AtomicCounter
}

func NewLocalBarrierManager() *LocalBarrierManager {
	return &LocalBarrierManager{
		senders:   make(map[uint32]chan *commtypes.Barrier),
		pending:   make(map[uint64]*epochState),
		completed: stats.NewAtomicCounter("epochs_completed"),
	}
}

// CompletedEpochs is the number of epochs completed so far. It is only
// counted when built with the stats tag.
func (m *LocalBarrierManager) CompletedEpochs() uint64 {
	return m.completed.GetCount()
}

// RegisterSource returns the channel the source executor of actorID reads
// barriers from.
func (m *LocalBarrierManager) RegisterSource(actorID uint32) <-chan *commtypes.Barrier {
	m.mux.Lock()
	defer m.mux.Unlock()
	ch := make(chan *commtypes.Barrier, barrierChannelBuffer)
	m.senders[actorID] = ch
	return ch
}

// RegisterActor adds an actor that has to collect every injected barrier.
func (m *LocalBarrierManager) RegisterActor(actorID uint32) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.actors = append(m.actors, actorID)
}

// EnableSnapshot exports what the graph wrote into changelog under name
// every time an epoch completes. Injection then waits for the previous
// epoch, so a snapshot holds exactly the writes of its epoch.
func (m *LocalBarrierManager) EnableSnapshot(changelog *state_store.ChangelogStateStore,
	ss snapshot_store.SnapshotStore, name string,
) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.snapshot = &snapshotExport{changelog: changelog, ss: ss, name: name}
}

// InjectBarrier sends b to every registered source.
func (m *LocalBarrierManager) InjectBarrier(ctx context.Context, b *commtypes.Barrier) (*EpochCompletion, error) {
	m.mux.Lock()
	if m.abortErr != nil {
		err := m.abortErr
		m.mux.Unlock()
		return nil, err
	}
	if m.stopped {
		m.mux.Unlock()
		return nil, xerrors.Errorf("inject epoch %d: %w", b.Epoch, common_errors.ErrStreamStopped)
	}
	if m.injected && b.Epoch <= m.lastEpoch {
		m.mux.Unlock()
		return nil, common_errors.InvalidBarrier("inject epoch %d after epoch %d", b.Epoch, m.lastEpoch)
	}
	prev := m.pending[m.lastEpoch]
	remaining := skipset.NewUint32()
	for _, id := range m.actors {
		remaining.Add(id)
	}
	st := &epochState{
		barrier:    b,
		remaining:  remaining,
		injected:   time.Now(),
		completion: &EpochCompletion{Epoch: b.Epoch, done: make(chan struct{})},
	}
	m.pending[b.Epoch] = st
	m.lastEpoch = b.Epoch
	m.injected = true
	m.stopped = b.IsStop()
	senders := make([]chan *commtypes.Barrier, 0, len(m.senders))
	for _, ch := range m.senders {
		senders = append(senders, ch)
	}
	withSnapshot := m.snapshot != nil
	m.mux.Unlock()

	if withSnapshot && prev != nil {
		if err := prev.completion.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if remaining.Len() == 0 {
		m.tryComplete(ctx, b.Epoch)
	}
	log.Debug().Uint64("epoch", b.Epoch).Bool("stop", b.IsStop()).Msg("inject barrier")
	for _, ch := range senders {
		select {
		case ch <- b:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return st.completion, nil
}

// Collect records that actorID forwarded b. The actor that collects an
// epoch last completes it.
func (m *LocalBarrierManager) Collect(ctx context.Context, actorID uint32, b *commtypes.Barrier) {
	m.mux.Lock()
	st, ok := m.pending[b.Epoch]
	if !ok {
		m.mux.Unlock()
		log.Warn().Uint32("actor", actorID).Uint64("epoch", b.Epoch).Msg("collect barrier that was never injected")
		return
	}
	st.remaining.Remove(actorID)
	m.mux.Unlock()
	m.tryComplete(ctx, b.Epoch)
}

func (m *LocalBarrierManager) tryComplete(ctx context.Context, epoch uint64) {
	m.mux.Lock()
	st, ok := m.pending[epoch]
	if !ok || st.remaining.Len() > 0 {
		m.mux.Unlock()
		return
	}
	delete(m.pending, epoch)
	export := m.snapshot
	m.mux.Unlock()

	var err error
	if export != nil {
		err = snapshot_store.ExportChangelog(ctx, export.ss, export.name, epoch, export.changelog)
	}
	elapsed := time.Since(st.injected)
	stats.EpochsCompletedTotal.Inc()
	stats.EpochDuration.Observe(elapsed.Seconds())
	m.completed.Tick(1)
	if st.barrier.IsStop() {
		m.completed.Report()
	}
	log.Debug().Uint64("epoch", epoch).Dur("duration", elapsed).Msg("epoch completed")
	st.completion.err = err
	close(st.completion.done)
}

// abort fails every pending epoch and future injections with err.
func (m *LocalBarrierManager) abort(err error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.abortErr != nil {
		return
	}
	m.abortErr = err
	for epoch, st := range m.pending {
		st.completion.err = err
		close(st.completion.done)
		delete(m.pending, epoch)
	}
}
