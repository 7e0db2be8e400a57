package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/upb/chat-fallback-proxy/config"
	"github.com/upb/chat-fallback-proxy/services/chat"
	"github.com/upb/chat-fallback-proxy/services/fallback"
	"github.com/upb/chat-fallback-proxy/services/providers"
	"github.com/upb/chat-fallback-proxy/services/providers/gemini"
	"github.com/upb/chat-fallback-proxy/services/routing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Upstream
	Client providers.Client

	// Fallback pipeline
	Prioritizer *routing.Prioritizer
	Executor    *fallback.Executor
	ChatService *chat.ChatService
	Catalog     *chat.Catalog
}

// NewDependencies creates and wires up all application dependencies.
// A missing API key is not an error here; chat requests report it instead.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initClient(cfg)

	if err := deps.initPipeline(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize fallback pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Bool("api_key_configured", cfg.HasAPIKey()),
		zap.Strings("catalog", deps.Prioritizer.Catalog()),
		zap.Int("long_threshold", deps.Prioritizer.Threshold()))
	return deps, nil
}

// initClient builds the upstream client
func (d *Dependencies) initClient(cfg *config.Config) {
	d.Client = gemini.NewGeminiAdapter(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
	})

	if !cfg.HasAPIKey() {
		d.Logger.Warn("GEMINI_API_KEY is not set, chat requests will fail until it is configured")
	}
}

// initPipeline builds the prioritizer, executor and chat service
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	prioritizer, err := routing.NewPrioritizer(routing.PolicyConfig{
		LongThreshold: cfg.Routing.LongThreshold,
		Catalog:       cfg.Routing.Catalog,
		LongOrder:     cfg.Routing.LongOrder,
		ShortOrder:    cfg.Routing.ShortOrder,
	}, d.Logger.Named("routing"))
	if err != nil {
		return fmt.Errorf("invalid routing policy: %w", err)
	}

	d.Prioritizer = prioritizer
	d.Executor = fallback.NewExecutor(d.Client, d.Logger.Named("fallback"),
		fallback.WithAttemptTimeout(cfg.Gemini.AttemptTimeout),
		fallback.WithBackoff(cfg.Gemini.RetryBackoff))
	d.ChatService = chat.NewChatService(cfg.HasAPIKey(), prioritizer, d.Executor, d.Logger.Named("chat"))
	d.Catalog = chat.NewCatalog(prioritizer, d.Client)

	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	if d.Logger == nil {
		return nil
	}
	d.Logger.Info("shutting down dependencies")

	var errs error
	if err := d.Logger.Sync(); err != nil && !isIgnorableSyncError(err) {
		errs = multierr.Append(errs, fmt.Errorf("failed to sync logger: %w", err))
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("shutdown interrupted: %w", err))
	}

	return errs
}

// isIgnorableSyncError reports errors from syncing a logger bound to a terminal or pipe
func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
