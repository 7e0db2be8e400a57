package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/chat-fallback-proxy/app"
	"github.com/upb/chat-fallback-proxy/handlers"
	appmw "github.com/upb/chat-fallback-proxy/middleware"
	"github.com/upb/chat-fallback-proxy/utils"
	"go.uber.org/zap"
)

// Paths served by the router
const (
	PathChat   = "/api/chat"
	PathChatV1 = "/v1/chat"
	PathModels = "/api/models"
	PathHealth = "/healthz"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RealIP)
	r.Use(appmw.NewRequestLogger(logger).Handler)
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		AllowedMethods:     []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:     cfg.CORS.AllowedHeaders,
		ExposedHeaders:     []string{handlers.HeaderModelUsed, handlers.HeaderModelAttempts, appmw.RequestIDHeader},
		AllowCredentials:   false,
		MaxAge:             cfg.CORS.MaxAge,
		OptionsPassthrough: true,
	}))
	r.Use(preflight)

	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	healthHandler := handlers.NewHealthHandler(cfg.HasAPIKey(), logger)
	chatHandler := handlers.NewChatHandler(deps.ChatService, deps.Catalog, cfg.Server.MaxBodyBytes, logger)

	r.Get(PathHealth, healthHandler.HandleHealth)
	r.Get(PathModels, chatHandler.HandleModels)
	r.Post(PathChat, chatHandler.HandleChat)
	r.Post(PathChatV1, chatHandler.HandleChat)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if err := utils.WriteMethodNotAllowed(w, allowedMethods(r.URL.Path)); err != nil {
			logger.Error("failed to write method not allowed response", zap.Error(err))
		}
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if err := utils.WriteNotFound(w, "endpoint not found"); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}
	})

	return r
}

// preflight answers every OPTIONS request with an empty 204 once the
// CORS headers have been written.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedMethods(path string) string {
	switch strings.TrimSuffix(path, "/") {
	case PathChat, PathChatV1:
		return "POST, OPTIONS"
	default:
		return "GET, OPTIONS"
	}
}
