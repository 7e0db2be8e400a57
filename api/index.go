// Package handler exposes the chat proxy as a single serverless function.
package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/upb/chat-fallback-proxy/app"
	"github.com/upb/chat-fallback-proxy/config"
	"github.com/upb/chat-fallback-proxy/internal/observability"
	"github.com/upb/chat-fallback-proxy/routes"
	"github.com/upb/chat-fallback-proxy/utils"
)

var (
	initOnce sync.Once
	router   http.Handler
	initErr  error
)

// Handler is the function entry point. Dependencies are built on the
// first invocation and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		router, initErr = build(context.Background())
	})
	if initErr != nil {
		_ = utils.WriteInternalServerError(w, "service unavailable: "+initErr.Error())
		return
	}
	router.ServeHTTP(w, r)
}

func build(ctx context.Context) (http.Handler, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, err
	}
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return routes.SetupRoutes(deps), nil
}
