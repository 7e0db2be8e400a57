package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Gemini        GeminiConfig
	Routing       RoutingConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds a whole chat request across every fallback attempt.
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// GeminiConfig holds the upstream generative-language API configuration.
// APIKey may be empty at load time; requests fail with a configuration
// error until it is provided.
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	AttemptTimeout time.Duration
	RetryBackoff   time.Duration
}

// RoutingConfig holds model prioritization overrides.
// Empty slices mean the built-in catalog and orderings are used.
type RoutingConfig struct {
	LongThreshold int
	File          string
	Catalog       []string
	LongOrder     []string
	ShortOrder    []string
}

// CORSConfig holds the cross-origin policy applied to every response
type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	MaxAge         int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 4*time.Minute),
			MaxBodyBytes:    int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			AttemptTimeout: getEnvAsDuration("GEMINI_ATTEMPT_TIMEOUT", 45*time.Second),
			RetryBackoff:   getEnvAsDuration("GEMINI_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Routing: RoutingConfig{
			LongThreshold: getEnvAsInt("ROUTING_LONG_THRESHOLD", 4000),
			File:          getEnv("ROUTING_CONFIG_FILE", ""),
			Catalog:       getEnvAsSlice("ROUTING_CATALOG"),
			LongOrder:     getEnvAsSlice("ROUTING_LONG_ORDER"),
			ShortOrder:    getEnvAsSlice("ROUTING_SHORT_ORDER"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedHeaders: getEnvAsSliceOrDefault("CORS_ALLOWED_HEADERS",
				[]string{"Accept", "Authorization", "Content-Type", "X-Requested-With"}),
			MaxAge: getEnvAsInt("CORS_MAX_AGE", 300),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Routing.File != "" {
		if err := cfg.Routing.LoadFile(cfg.Routing.File); err != nil {
			return nil, fmt.Errorf("failed to load routing file: %w", err)
		}
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set.
// The Gemini API key is deliberately not checked here.
func (c *Config) Validate() error {
	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("gemini base URL is required")
	}
	if c.Gemini.AttemptTimeout <= 0 {
		return fmt.Errorf("gemini attempt timeout must be positive")
	}
	if c.Gemini.RetryBackoff < 0 {
		return fmt.Errorf("gemini retry backoff cannot be negative")
	}

	if c.Routing.LongThreshold < 0 {
		return fmt.Errorf("routing long threshold cannot be negative")
	}

	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin is required")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// HasAPIKey reports whether the upstream credential is configured
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma-separated env var, dropping empty entries
func getEnvAsSlice(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsSliceOrDefault(key string, defaultValue []string) []string {
	if values := getEnvAsSlice(key); len(values) > 0 {
		return values
	}
	return defaultValue
}
