package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/generation"
	"github.com/phrazzld/studytools/internal/platform/cache"
	"github.com/phrazzld/studytools/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "memory"},
		LLM:      config.LLMConfig{Provider: "sample", ModelName: "sample"},
		Worker: config.WorkerConfig{
			GenerationTimeout:    time.Second,
			LeaseDuration:        time.Minute,
			ReconcileInterval:    time.Minute,
			StalePendingAfter:    time.Minute,
			TerminalWriteRetries: 2,
			MaxDeliveries:        4,
		},
	}
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := memoryConfig()

	stores, err := OpenStores(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer stores.Close()

	assert.Nil(t, stores.DB)
	assert.IsType(t, &memory.TaskStore{}, stores.Tasks)
	assert.IsType(t, &memory.DocumentStore{}, stores.Documents)

	cfg.Cache = config.CacheConfig{DocumentCacheSize: 8, DocumentCacheTTL: time.Minute}
	cached, err := OpenStores(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &cache.DocumentStore{}, cached.Documents)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = "sqlite"
	_, err := OpenStores(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(context.Background(), config.LLMConfig{Provider: "sample"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, generation.SampleGenerator{}, g)

	_, err = NewGenerator(context.Background(), config.LLMConfig{Provider: "gemini", ModelName: "m"}, discardLogger())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig, "gemini without an API key")

	_, err = NewGenerator(context.Background(), config.LLMConfig{Provider: "openai"}, discardLogger())
	assert.Error(t, err)
}

func TestNewWorker(t *testing.T) {
	cfg := memoryConfig()
	stores, err := OpenStores(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	w, err := NewWorker(cfg, stores.Tasks, stores, generation.SampleGenerator{}, discardLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID())
}

func TestConfigMappings(t *testing.T) {
	cfg := memoryConfig()

	qc := QueueClientConfig(cfg.Worker)
	assert.Equal(t, 4, qc.MaxRetry)
	assert.Equal(t, time.Minute, qc.Timeout)

	rc := ReconcilerConfig(cfg.Worker)
	assert.Equal(t, time.Minute, rc.Interval)
	assert.Equal(t, time.Minute, rc.StalePendingAfter)

	assert.False(t, RedisEnabled(cfg.Redis))
	cfg.Redis.Addr = "localhost:6379"
	assert.True(t, RedisEnabled(cfg.Redis))
	assert.Equal(t, "localhost:6379", AsynqConnOpt(cfg.Redis).Addr)
}
