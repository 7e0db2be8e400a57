package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/upb/chat-fallback-proxy/internal/observability"
	"github.com/upb/chat-fallback-proxy/services/chat"
	"github.com/upb/chat-fallback-proxy/services/providers"
	"github.com/upb/chat-fallback-proxy/utils"
	"go.uber.org/zap"
)

// Response headers describing which model answered
const (
	HeaderModelUsed     = "X-Model-Used"
	HeaderModelAttempts = "X-Model-Attempts"
)

// DefaultMaxBodyBytes caps the request body when no limit is configured
const DefaultMaxBodyBytes int64 = 1 << 20

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// ChatMessage is one conversation turn
type ChatMessage struct {
	Role  string     `json:"role" validate:"required,oneof=user model"`
	Parts []ChatPart `json:"parts" validate:"required,min=1"`
}

// ChatPart is a text segment of a turn
type ChatPart struct {
	Text string `json:"text"`
}

// ChatService defines the interface for chat completion
type ChatService interface {
	// Complete runs the conversation through the model fallback sequence
	Complete(ctx context.Context, contents []providers.Content) (*chat.Result, error)
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	service      ChatService
	catalog      *chat.Catalog
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, catalog *chat.Catalog, maxBodyBytes int64, logger *zap.Logger) *ChatHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		service:      service,
		catalog:      catalog,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// HandleChat handles POST /api/chat.
// On success the upstream body is relayed unchanged.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	// Parse request body
	var chatReq ChatRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&chatReq); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}
		logger.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body: messages must be an array of {role, parts}", nil)
		return
	}

	// Validate request
	if err := utils.ValidateStruct(&chatReq); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	result, err := h.service.Complete(ctx, toContents(chatReq.Messages))
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	w.Header().Set(HeaderModelUsed, result.Model)
	w.Header().Set(HeaderModelAttempts, strconv.Itoa(result.Attempts))
	if err := utils.WriteRaw(w, http.StatusOK, result.Body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleModels handles GET /api/models
func (h *ChatHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSON(w, http.StatusOK, h.catalog); err != nil {
		h.logger.Error("failed to write models response", zap.Error(err))
	}
}

func toContents(messages []ChatMessage) []providers.Content {
	contents := make([]providers.Content, 0, len(messages))
	for _, m := range messages {
		parts := make([]providers.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, providers.Part{Text: p.Text})
		}
		contents = append(contents, providers.Content{Role: m.Role, Parts: parts})
	}
	return contents
}
