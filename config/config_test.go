package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 4*time.Minute, cfg.Server.RequestTimeout)
				assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
				assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.Gemini.BaseURL)
				assert.Equal(t, 45*time.Second, cfg.Gemini.AttemptTimeout)
				assert.Equal(t, 500*time.Millisecond, cfg.Gemini.RetryBackoff)
				assert.Equal(t, 4000, cfg.Routing.LongThreshold)
				assert.Empty(t, cfg.Routing.Catalog)
				assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"}, cfg.CORS.AllowedHeaders)
				assert.False(t, cfg.HasAPIKey())
			},
		},
		{
			name: "missing API key does not fail loading",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.HasAPIKey())
			},
		},
		{
			name: "gemini configuration",
			envVars: map[string]string{
				"GEMINI_API_KEY":         "AIza-test",
				"GEMINI_BASE_URL":        "http://localhost:9999",
				"GEMINI_ATTEMPT_TIMEOUT": "10s",
				"GEMINI_RETRY_BACKOFF":   "1s",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.HasAPIKey())
				assert.Equal(t, "http://localhost:9999", cfg.Gemini.BaseURL)
				assert.Equal(t, 10*time.Second, cfg.Gemini.AttemptTimeout)
				assert.Equal(t, time.Second, cfg.Gemini.RetryBackoff)
			},
		},
		{
			name: "routing overrides from env",
			envVars: map[string]string{
				"ROUTING_LONG_THRESHOLD": "8000",
				"ROUTING_CATALOG":        "a, b ,c",
				"ROUTING_LONG_ORDER":     "a,b,c",
				"ROUTING_SHORT_ORDER":    "b,a,c",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8000, cfg.Routing.LongThreshold)
				assert.Equal(t, []string{"a", "b", "c"}, cfg.Routing.Catalog)
				assert.Equal(t, []string{"a", "b", "c"}, cfg.Routing.LongOrder)
				assert.Equal(t, []string{"b", "a", "c"}, cfg.Routing.ShortOrder)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":  "debug",
				"LOG_FORMAT": "console",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "invalid duration falls back to default",
			envVars: map[string]string{
				"GEMINI_ATTEMPT_TIMEOUT": "soon",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 45*time.Second, cfg.Gemini.AttemptTimeout)
			},
		},
		{
			name: "negative threshold",
			envVars: map[string]string{
				"ROUTING_LONG_THRESHOLD": "-1",
			},
			wantErr: true,
		},
		{
			name: "missing routing file",
			envVars: map[string]string{
				"ROUTING_CONFIG_FILE": "/does/not/exist.yaml",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Server: ServerConfig{
				RequestTimeout: time.Minute,
				MaxBodyBytes:   1024,
			},
			Gemini: GeminiConfig{
				BaseURL:        "https://generativelanguage.googleapis.com",
				AttemptTimeout: 45 * time.Second,
				RetryBackoff:   500 * time.Millisecond,
			},
			Routing: RoutingConfig{LongThreshold: 4000},
			CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
			Observability: ObservabilityConfig{
				LogLevel: "info",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Gemini.BaseURL = "" },
			wantErr: true,
			errMsg:  "gemini base URL is required",
		},
		{
			name:    "zero attempt timeout",
			mutate:  func(c *Config) { c.Gemini.AttemptTimeout = 0 },
			wantErr: true,
			errMsg:  "gemini attempt timeout must be positive",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *Config) { c.Gemini.RetryBackoff = -time.Second },
			wantErr: true,
			errMsg:  "gemini retry backoff cannot be negative",
		},
		{
			name:    "no CORS origins",
			mutate:  func(c *Config) { c.CORS.AllowedOrigins = nil },
			wantErr: true,
			errMsg:  "at least one CORS origin is required",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRoutingConfig_LoadFile(t *testing.T) {
	os.Clearenv()

	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	content := `
long_threshold: 6000
catalog: [a, b, c]
orders:
  long: [a, b, c]
  short: [b, a, c]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Run("file fills unset fields", func(t *testing.T) {
		r := RoutingConfig{LongThreshold: 4000}
		require.NoError(t, r.LoadFile(path))

		assert.Equal(t, 6000, r.LongThreshold)
		assert.Equal(t, []string{"a", "b", "c"}, r.Catalog)
		assert.Equal(t, []string{"a", "b", "c"}, r.LongOrder)
		assert.Equal(t, []string{"b", "a", "c"}, r.ShortOrder)
	})

	t.Run("env values win over file", func(t *testing.T) {
		t.Setenv("ROUTING_LONG_THRESHOLD", "4000")
		r := RoutingConfig{LongThreshold: 4000, ShortOrder: []string{"c", "b", "a"}}
		require.NoError(t, r.LoadFile(path))

		assert.Equal(t, 4000, r.LongThreshold)
		assert.Equal(t, []string{"c", "b", "a"}, r.ShortOrder)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("catalog: [a, b"), 0o600))

		r := RoutingConfig{}
		assert.Error(t, r.LoadFile(bad))
	})
}
