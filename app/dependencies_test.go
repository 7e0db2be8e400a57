package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chat-fallback-proxy/config"
	"github.com/upb/chat-fallback-proxy/services"
	"github.com/upb/chat-fallback-proxy/services/providers"
	"github.com/upb/chat-fallback-proxy/services/routing"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Logger)
		assert.NotNil(t, deps.Client)
		assert.NotNil(t, deps.Prioritizer)
		assert.NotNil(t, deps.Executor)
		assert.NotNil(t, deps.ChatService)
		assert.NotNil(t, deps.Catalog)

		assert.Equal(t, "gemini", deps.Client.Name())
		assert.Equal(t, routing.DefaultCatalog, deps.Prioritizer.Catalog())
		assert.Equal(t, routing.DefaultLongThreshold, deps.Catalog.LongThreshold)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("nil config", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), nil, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(t), nil)
		require.NoError(t, err)
		assert.NotNil(t, deps.Logger)
	})

	t.Run("routing overrides are applied", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Routing.LongThreshold = 100
		cfg.Routing.ShortOrder = []string{
			routing.ModelFlashPrev,
			routing.ModelFlashCurrent,
			routing.ModelProPrevious,
			routing.ModelProCurrent,
			routing.ModelLegacy,
		}

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Equal(t, 100, deps.Prioritizer.Threshold())
		assert.Equal(t, cfg.Routing.ShortOrder, deps.Prioritizer.ChooseOrder(10))
	})

	t.Run("invalid routing policy fails startup", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Routing.LongOrder = []string{routing.ModelProCurrent, routing.ModelProCurrent}

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize fallback pipeline")
		assert.ErrorIs(t, err, routing.ErrInvalidOrdering)
	})

	t.Run("missing api key still initializes", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Gemini.APIKey = ""

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = deps.ChatService.Complete(context.Background(), []providers.Content{
			{Role: "user", Parts: []providers.Part{{Text: "hello"}}},
		})
		assert.True(t, services.IsConfigurationError(err))
	})
}

func TestDependenciesClose(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.NoError(t, deps.Close(ctx))

		// Second close should not panic
		assert.NotPanics(t, func() { _ = deps.Close(ctx) })
	})

	t.Run("expired shutdown context is reported", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = deps.Close(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero value", func(t *testing.T) {
		assert.NoError(t, (&Dependencies{}).Close(context.Background()))
	})
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  time.Minute,
			MaxBodyBytes:    1 << 20,
		},
		Gemini: config.GeminiConfig{
			APIKey:         "test-key",
			BaseURL:        "http://127.0.0.1:0",
			AttemptTimeout: time.Second,
			RetryBackoff:   10 * time.Millisecond,
		},
		Routing: config.RoutingConfig{
			LongThreshold: 4000,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}
