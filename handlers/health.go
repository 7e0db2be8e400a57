package handlers

import (
	"net/http"
	"time"

	"github.com/upb/chat-fallback-proxy/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	hasAPIKey bool
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(hasAPIKey bool, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		hasAPIKey: hasAPIKey,
		logger:    logger,
	}
}

// HandleHealth handles GET /healthz.
// Always 200 while the process serves; a missing key is reported, not fatal.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:           "ok",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		APIKeyConfigured: h.hasAPIKey,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}
