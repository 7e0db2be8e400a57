package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chat-fallback-proxy/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.ObservabilityConfig
		wantErr   bool
		wantLevel zapcore.Level
	}{
		{
			name:      "json info",
			cfg:       config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
			wantLevel: zapcore.InfoLevel,
		},
		{
			name:      "console debug",
			cfg:       config.ObservabilityConfig{LogLevel: "DEBUG", LogFormat: "console"},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:    "unknown level",
			cfg:     config.ObservabilityConfig{LogLevel: "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewNop()

	t.Run("returns stored logger", func(t *testing.T) {
		stored := zap.NewExample()
		ctx := WithLogger(context.Background(), stored)
		assert.Same(t, stored, FromContext(ctx, fallback))
	})

	t.Run("returns fallback when unset", func(t *testing.T) {
		assert.Same(t, fallback, FromContext(context.Background(), fallback))
	})

	t.Run("never returns nil", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background(), nil))
	})
}
