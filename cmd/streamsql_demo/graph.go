package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Jeffail/gabs/v2"

	"streamsql/pkg/aggregation"
	"streamsql/pkg/commtypes"
	"streamsql/pkg/env_config"
	"streamsql/pkg/executor"
	"streamsql/pkg/expr"
	"streamsql/pkg/state_store"
	"streamsql/pkg/stream_task"
)

const (
	numBuckets = 4
	minPrice   = 100
)

var (
	i64Type   = commtypes.Int64Type(false)
	bidSchema = commtypes.NewSchema(
		commtypes.FieldWithName(i64Type, "auction"),
		commtypes.FieldWithName(i64Type, "price"),
	)
)

// buildDemoGraph wires
//
//	source(1) -broadcast-> filter+project(2) -hash-> hash agg(3, 4) -> merge sink(5)
//	          \-> simple agg sink(6)
func buildDemoGraph(mgr *stream_task.LocalBarrierManager, cfg *env_config.Config,
	store state_store.StateStore, chunks <-chan *commtypes.StreamChunk,
) (*stream_task.StreamGraph, error) {
	g := stream_task.NewStreamGraph(mgr, cfg.ChannelBuffer)
	ch12, ch16 := g.NewChannel(), g.NewChannel()
	ch23, ch24 := g.NewChannel(), g.NewChannel()
	ch35, ch45 := g.NewChannel(), g.NewChannel()

	src := executor.NewSourceExecutor(bidSchema, nil, chunks, mgr.RegisterSource(1), 1)
	g.AddActor(stream_task.NewActor(1, src, stream_task.NewBroadcastDispatcher([]stream_task.Output{
		{ActorID: 2, Ch: ch12}, {ActorID: 6, Ch: ch16},
	}), mgr))

	floor, err := expr.NewLiteral(int64(minPrice), i64Type)
	if err != nil {
		return nil, err
	}
	buckets, err := expr.NewLiteral(int64(numBuckets), i64Type)
	if err != nil {
		return nil, err
	}
	aboveFloor, err := expr.NewBinary(expr.GT, expr.NewInputRef(1, i64Type), floor)
	if err != nil {
		return nil, err
	}
	bucket, err := expr.NewBinary(expr.MOD, expr.NewInputRef(0, i64Type), buckets)
	if err != nil {
		return nil, err
	}
	filter, err := executor.NewFilterExecutor(executor.NewReceiverExecutor(bidSchema, nil, ch12, 2), aboveFloor, 3)
	if err != nil {
		return nil, err
	}
	project, err := executor.NewProjectExecutor(filter, nil, []expr.Expression{bucket, expr.NewInputRef(1, i64Type)}, 4)
	if err != nil {
		return nil, err
	}
	hashDispatcher, err := stream_task.NewHashDispatcher([]stream_task.Output{
		{ActorID: 3, Ch: ch23}, {ActorID: 4, Ch: ch24},
	}, project.Schema(), []int{0})
	if err != nil {
		return nil, err
	}
	g.AddActor(stream_task.NewActor(2, project, hashDispatcher, mgr))

	bucketCalls := []aggregation.AggCall{aggregation.RowCount(), aggregation.Sum(1, i64Type), aggregation.Max(1, i64Type)}
	hashAggs := make([]executor.Executor, 0, 2)
	for i, in := range []chan commtypes.Message{ch23, ch24} {
		recvID, aggID := uint64(5+2*i), uint64(6+2*i)
		agg, err := executor.NewHashAggExecutor(executor.NewReceiverExecutor(project.Schema(), nil, in, recvID),
			bucketCalls, []int{0}, state_store.ExecutorKeyspace(store, uint32(aggID)), aggID, cfg.ExtremeCacheSize)
		if err != nil {
			return nil, err
		}
		hashAggs = append(hashAggs, agg)
	}
	g.AddActor(stream_task.NewActor(3, hashAggs[0], stream_task.NewSimpleDispatcher(stream_task.Output{ActorID: 5, Ch: ch35}), mgr))
	g.AddActor(stream_task.NewActor(4, hashAggs[1], stream_task.NewSimpleDispatcher(stream_task.Output{ActorID: 5, Ch: ch45}), mgr))

	aggSchema := hashAggs[0].Schema()
	merge, err := executor.NewMergeExecutor([]executor.Executor{
		executor.NewReceiverExecutor(aggSchema, hashAggs[0].PkIndices(), ch35, 9),
		executor.NewReceiverExecutor(aggSchema, hashAggs[1].PkIndices(), ch45, 10),
	}, 11)
	if err != nil {
		return nil, err
	}
	g.AddActor(stream_task.NewActor(5, merge, stream_task.NewSinkDispatcher(jsonSink("bucket_stats", aggSchema)), mgr))

	totals, err := executor.NewSimpleAggExecutor(executor.NewReceiverExecutor(bidSchema, nil, ch16, 12),
		[]aggregation.AggCall{aggregation.RowCount(), aggregation.Sum(1, i64Type), aggregation.Min(1, i64Type)},
		state_store.ExecutorKeyspace(store, 13), nil, 13, cfg.ExtremeCacheSize)
	if err != nil {
		return nil, err
	}
	g.AddActor(stream_task.NewActor(6, totals, stream_task.NewSinkDispatcher(jsonSink("totals", totals.Schema())), mgr))
	return g, nil
}

// jsonSink prints every visible row as one JSON object.
func jsonSink(name string, schema commtypes.Schema) func(ctx context.Context, chunk *commtypes.StreamChunk) error {
	return func(ctx context.Context, chunk *commtypes.StreamChunk) error {
		for _, r := range chunk.Rows() {
			obj := gabs.New()
			if _, err := obj.Set(name, "sink"); err != nil {
				return err
			}
			if _, err := obj.Set(r.Op.String(), "op"); err != nil {
				return err
			}
			for i, f := range schema.Fields {
				col := f.Name
				if col == "" {
					col = fmt.Sprintf("col%d", i)
				}
				if _, err := obj.Set(r.Row[i], col); err != nil {
					return err
				}
			}
			fmt.Println(obj.String())
		}
		return nil
	}
}

type bid struct {
	auction int64
	price   int64
}

// bidGenerator produces inserts of random bids and, now and then, the
// retraction of a bid it inserted earlier.
type bidGenerator struct {
	rnd  *rand.Rand
	live []bid
}

func newBidGenerator(seed int64) *bidGenerator {
	return &bidGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *bidGenerator) nextChunk(n int) (*commtypes.StreamChunk, error) {
	ops := make([]commtypes.Op, 0, n)
	auctions := make([]int64, 0, n)
	prices := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		if len(g.live) > 0 && g.rnd.Intn(5) == 0 {
			idx := g.rnd.Intn(len(g.live))
			b := g.live[idx]
			g.live[idx] = g.live[len(g.live)-1]
			g.live = g.live[:len(g.live)-1]
			ops = append(ops, commtypes.DELETE)
			auctions = append(auctions, b.auction)
			prices = append(prices, b.price)
			continue
		}
		b := bid{auction: g.rnd.Int63n(20), price: 1 + g.rnd.Int63n(999)}
		g.live = append(g.live, b)
		ops = append(ops, commtypes.INSERT)
		auctions = append(auctions, b.auction)
		prices = append(prices, b.price)
	}
	return commtypes.NewStreamChunk(ops, []commtypes.Array{
		commtypes.NewI64Array(auctions...), commtypes.NewI64Array(prices...),
	}, nil)
}
