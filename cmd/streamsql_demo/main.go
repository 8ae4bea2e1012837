package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/commtypes"
	"streamsql/pkg/env_config"
	"streamsql/pkg/redis_client"
	"streamsql/pkg/snapshot_store"
	"streamsql/pkg/state_store"
	"streamsql/pkg/stream_task"
)

var (
	FLAGS_job_id         string
	FLAGS_rows_per_epoch int
	FLAGS_seed           int64
	FLAGS_restore        bool
	FLAGS_metrics_addr   string
)

const stateStoreName = "streamsql"

func init() {
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := zerolog.ParseLevel(logLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func openStateStore(ctx context.Context, cfg *env_config.Config) (state_store.StateStore, error) {
	switch cfg.StateStore {
	case env_config.STORE_BADGER:
		return state_store.OpenBadgerStateStore(stateStoreName, cfg.BadgerDir)
	case env_config.STORE_REDIS:
		rdb, err := redis_client.GetRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return state_store.NewRedisStateStore(stateStoreName, rdb), nil
	default:
		return state_store.NewMemoryStateStore(stateStoreName), nil
	}
}

func openSnapshotStore(ctx context.Context, cfg *env_config.Config) (snapshot_store.SnapshotStore, error) {
	switch cfg.SnapshotStore {
	case env_config.SNAPSHOT_REDIS:
		return snapshot_store.NewRedisSnapshotStore(cfg.RedisAddr), nil
	case env_config.SNAPSHOT_MINIO:
		ms, err := snapshot_store.NewMinioSnapshotStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := ms.CreateSnapshotBucket(ctx); err != nil {
			return nil, xerrors.Errorf("create snapshot bucket: %w", err)
		}
		return ms, nil
	default:
		return nil, nil
	}
}

func run(ctx context.Context, cfg *env_config.Config) error {
	store, err := openStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ss, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		return err
	}
	snapshotName := fmt.Sprintf("%s-%s", FLAGS_job_id, store.Name())

	startEpoch := uint64(1)
	if FLAGS_restore && ss != nil {
		last, err := snapshot_store.RestoreStateStore(ctx, ss, snapshotName, store)
		if err != nil {
			return err
		}
		startEpoch = last + 1
	}

	mgr := stream_task.NewLocalBarrierManager()
	graphStore := store
	if ss != nil {
		changelog := state_store.NewChangelogStateStore(store)
		mgr.EnableSnapshot(changelog, ss, snapshotName)
		graphStore = changelog
	}
	chunks := make(chan *commtypes.StreamChunk)
	g, err := buildDemoGraph(mgr, cfg, graphStore, chunks)
	if err != nil {
		return err
	}
	log.Info().Str("job", FLAGS_job_id).Uint64("start_epoch", startEpoch).Int("epochs", cfg.DemoEpochs).Msg("start demo")

	runErr := make(chan error, 1)
	go func() {
		runErr <- g.Run(ctx)
	}()

	gen := newBidGenerator(FLAGS_seed)
	for i := 0; i < cfg.DemoEpochs; i++ {
		epoch := startEpoch + uint64(i)
		chunk, err := gen.nextChunk(FLAGS_rows_per_epoch)
		if err != nil {
			return err
		}
		select {
		case chunks <- chunk:
		case err := <-runErr:
			return xerrors.Errorf("graph exited before epoch %d: %w", epoch, err)
		}
		if err := injectAndWait(ctx, mgr, commtypes.NewBarrier(epoch)); err != nil {
			return err
		}
	}
	if err := injectAndWait(ctx, mgr, commtypes.NewStopBarrier(startEpoch+uint64(cfg.DemoEpochs))); err != nil {
		return err
	}
	return <-runErr
}

func injectAndWait(ctx context.Context, mgr *stream_task.LocalBarrierManager, b *commtypes.Barrier) error {
	completion, err := mgr.InjectBarrier(ctx, b)
	if err != nil {
		return err
	}
	if err := completion.Wait(ctx); err != nil {
		return xerrors.Errorf("epoch %d: %w", b.Epoch, err)
	}
	log.Info().Uint64("epoch", b.Epoch).Msg("epoch completed")
	return nil
}

func main() {
	flag.StringVar(&FLAGS_job_id, "job_id", "", "job id used to name snapshots, random when empty")
	flag.IntVar(&FLAGS_rows_per_epoch, "rows_per_epoch", 8, "")
	flag.Int64Var(&FLAGS_seed, "seed", 42, "")
	flag.BoolVar(&FLAGS_restore, "restore", false, "restore state from the snapshots of job_id")
	flag.StringVar(&FLAGS_metrics_addr, "metrics_addr", "", "serve prometheus metrics on this address")
	flag.Parse()
	if FLAGS_job_id == "" {
		FLAGS_job_id = uuid.NewString()
	}

	cfg, err := env_config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if FLAGS_metrics_addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(FLAGS_metrics_addr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}
