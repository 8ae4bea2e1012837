package stream_task

import (
	"context"

	"golang.org/x/sync/errgroup"

	"streamsql/pkg/commtypes"
)

// StreamGraph is a set of actors connected by channels, sharing one
// barrier manager.
type StreamGraph struct {
	mgr           *LocalBarrierManager
	actors        []*Actor
	channelBuffer int
}

func NewStreamGraph(mgr *LocalBarrierManager, channelBuffer int) *StreamGraph {
	return &StreamGraph{mgr: mgr, channelBuffer: channelBuffer}
}

func (g *StreamGraph) BarrierManager() *LocalBarrierManager {
	return g.mgr
}

// NewChannel makes the edge between two actors.
func (g *StreamGraph) NewChannel() chan commtypes.Message {
	return make(chan commtypes.Message, g.channelBuffer)
}

func (g *StreamGraph) AddActor(a *Actor) {
	g.actors = append(g.actors, a)
	g.mgr.RegisterActor(a.ID())
}

// Run runs every actor until all of them stopped. The first failure
// cancels the rest and is returned.
func (g *StreamGraph) Run(ctx context.Context) error {
	eg, ectx := errgroup.WithContext(ctx)
	for _, a := range g.actors {
		a := a
		eg.Go(func() error {
			return a.Run(ectx)
		})
	}
	err := eg.Wait()
	if err != nil {
		g.mgr.abort(err)
	}
	return err
}
