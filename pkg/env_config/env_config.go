package env_config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	STORE_MEMORY = "memory"
	STORE_BADGER = "badger"
	STORE_REDIS  = "redis"

	SNAPSHOT_NONE  = "none"
	SNAPSHOT_REDIS = "redis"
	SNAPSHOT_MINIO = "minio"

	DEFAULT_CHANNEL_BUFFER     = 16
	DEFAULT_EXTREME_CACHE_SIZE = 1024
	DEFAULT_DEMO_EPOCHS        = 3
)

type Config struct {
	LogLevel         string
	StateStore       string
	BadgerDir        string
	RedisAddr        string
	MinioAddr        string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioSecure      bool
	SnapshotStore    string
	ChannelBuffer    int
	ExtremeCacheSize int
	DemoEpochs       int
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:       os.Getenv("LOG_LEVEL"),
		StateStore:     getOr("STATE_STORE", STORE_MEMORY),
		BadgerDir:      os.Getenv("BADGER_DIR"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		MinioAddr:      os.Getenv("MINIO_ADDR"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioSecure:    checkBool("MINIO_SECURE"),
		SnapshotStore:  getOr("SNAPSHOT_STORE", SNAPSHOT_NONE),
	}
	var err error
	if cfg.ChannelBuffer, err = getInt("CHANNEL_BUFFER", DEFAULT_CHANNEL_BUFFER); err != nil {
		return nil, err
	}
	if cfg.ExtremeCacheSize, err = getInt("EXTREME_CACHE_SIZE", DEFAULT_EXTREME_CACHE_SIZE); err != nil {
		return nil, err
	}
	if cfg.DemoEpochs, err = getInt("DEMO_EPOCHS", DEFAULT_DEMO_EPOCHS); err != nil {
		return nil, err
	}
	switch cfg.StateStore {
	case STORE_MEMORY, STORE_BADGER:
	case STORE_REDIS:
		if cfg.RedisAddr == "" {
			return nil, xerrors.New("STATE_STORE=redis requires REDIS_ADDR")
		}
	default:
		return nil, xerrors.Errorf("unrecognized STATE_STORE %q", cfg.StateStore)
	}
	switch cfg.SnapshotStore {
	case SNAPSHOT_NONE:
	case SNAPSHOT_REDIS:
		if cfg.RedisAddr == "" {
			return nil, xerrors.New("SNAPSHOT_STORE=redis requires REDIS_ADDR")
		}
	case SNAPSHOT_MINIO:
		if cfg.MinioAddr == "" {
			return nil, xerrors.New("SNAPSHOT_STORE=minio requires MINIO_ADDR")
		}
	default:
		return nil, xerrors.Errorf("unrecognized SNAPSHOT_STORE %q", cfg.SnapshotStore)
	}
	log.Info().
		Str("state_store", cfg.StateStore).
		Str("snapshot_store", cfg.SnapshotStore).
		Int("channel_buffer", cfg.ChannelBuffer).
		Int("extreme_cache_size", cfg.ExtremeCacheSize).
		Msg("loaded config")
	return cfg, nil
}

func getOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func checkBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, xerrors.Errorf("parse %s=%q: %w", key, v, err)
	}
	if n <= 0 {
		return 0, xerrors.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
