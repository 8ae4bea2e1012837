package env_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_STORE", "")
	t.Setenv("SNAPSHOT_STORE", "")
	t.Setenv("CHANNEL_BUFFER", "")
	t.Setenv("EXTREME_CACHE_SIZE", "")
	t.Setenv("DEMO_EPOCHS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, STORE_MEMORY, cfg.StateStore)
	assert.Equal(t, SNAPSHOT_NONE, cfg.SnapshotStore)
	assert.Equal(t, DEFAULT_CHANNEL_BUFFER, cfg.ChannelBuffer)
	assert.Equal(t, DEFAULT_EXTREME_CACHE_SIZE, cfg.ExtremeCacheSize)
	assert.Equal(t, DEFAULT_DEMO_EPOCHS, cfg.DemoEpochs)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STATE_STORE": "rocks"}},
		{"redis without addr", map[string]string{"STATE_STORE": "redis", "REDIS_ADDR": ""}},
		{"minio without addr", map[string]string{"SNAPSHOT_STORE": "minio", "MINIO_ADDR": ""}},
		{"bad int", map[string]string{"CHANNEL_BUFFER": "many"}},
		{"zero int", map[string]string{"EXTREME_CACHE_SIZE": "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STATE_STORE", "badger")
	t.Setenv("CHANNEL_BUFFER", "4")
	t.Setenv("MINIO_SECURE", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, STORE_BADGER, cfg.StateStore)
	assert.Equal(t, 4, cfg.ChannelBuffer)
	assert.True(t, cfg.MinioSecure)
}
