package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/upb/chat-fallback-proxy/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiKeyHeader   = "x-goog-api-key"
	providerName   = "gemini"
)

// Config holds the adapter configuration
type Config struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override, no trailing slash)
	BaseURL string

	// HTTPClient overrides the default client. Request deadlines come from
	// the caller's context, so the default client has no timeout of its own.
	HTTPClient *http.Client

	// Headers are applied to every request
	Headers map[string]string
}

// GeminiAdapter implements providers.Client for the Gemini generateContent API
type GeminiAdapter struct {
	config     Config
	httpClient *http.Client
	models     map[string]*providers.ModelInfo
	order      []string
}

var _ providers.Client = (*GeminiAdapter)(nil)

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config Config) *GeminiAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	adapter := &GeminiAdapter{
		config:     config,
		httpClient: httpClient,
	}

	// Initialize model information
	adapter.initModels()

	return adapter
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return providerName
}

// GenerateContent performs one generateContent call against one model
func (a *GeminiAdapter) GenerateContent(ctx context.Context, model string, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	if a.config.APIKey == "" {
		return nil, a.newError(model, "MISSING_API_KEY", "API key not configured", 0, false, nil)
	}
	if model == "" {
		return nil, a.newError(model, "INVALID_MODEL", "model is required", http.StatusBadRequest, false, nil)
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, a.newError(model, "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.config.BaseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, a.newError(model, "REQUEST_ERROR", "Failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, a.transportError(ctx, model, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, a.transportError(ctx, model, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(model, httpResp.StatusCode, respBody)
	}

	var resp providers.GenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, a.newError(model, "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, true, err)
	}
	resp.Raw = json.RawMessage(respBody)

	return &resp, nil
}

// GetModelInfo returns information about a specific model
func (a *GeminiAdapter) GetModelInfo(model string) (*providers.ModelInfo, error) {
	info, exists := a.models[model]
	if !exists {
		return nil, fmt.Errorf("model %s not found", model)
	}
	return info, nil
}

// ListModels returns all known models, most capable first
func (a *GeminiAdapter) ListModels() []providers.ModelInfo {
	models := make([]providers.ModelInfo, 0, len(a.order))
	for _, id := range a.order {
		models = append(models, *a.models[id])
	}
	return models
}

// initModels initializes the model information map
func (a *GeminiAdapter) initModels() {
	catalog := []providers.ModelInfo{
		{
			ID:              "gemini-2.5-pro",
			Name:            "Gemini 2.5 Pro",
			Tier:            "pro",
			Generation:      "2.5",
			ContextWindow:   1048576,
			MaxOutputTokens: 65536,
		},
		{
			ID:              "gemini-1.5-pro",
			Name:            "Gemini 1.5 Pro",
			Tier:            "pro",
			Generation:      "1.5",
			ContextWindow:   2097152,
			MaxOutputTokens: 8192,
		},
		{
			ID:              "gemini-2.5-flash",
			Name:            "Gemini 2.5 Flash",
			Tier:            "flash",
			Generation:      "2.5",
			ContextWindow:   1048576,
			MaxOutputTokens: 65536,
		},
		{
			ID:              "gemini-1.5-flash",
			Name:            "Gemini 1.5 Flash",
			Tier:            "flash",
			Generation:      "1.5",
			ContextWindow:   1048576,
			MaxOutputTokens: 8192,
		},
		{
			ID:              "gemini-pro",
			Name:            "Gemini 1.0 Pro",
			Tier:            "pro",
			Generation:      "1.0",
			ContextWindow:   30720,
			MaxOutputTokens: 2048,
		},
	}

	a.models = make(map[string]*providers.ModelInfo, len(catalog))
	a.order = make([]string, 0, len(catalog))
	for i := range catalog {
		info := catalog[i]
		info.Provider = providerName
		a.models[info.ID] = &info
		a.order = append(a.order, info.ID)
	}
}

// transportError classifies a failure to send or read the request.
// Everything here is retryable; a deadline is additionally tagged as a timeout.
func (a *GeminiAdapter) transportError(ctx context.Context, model string, err error) error {
	provErr := a.newError(model, "HTTP_ERROR", "HTTP request failed", 0, true, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		provErr.Code = "DEADLINE_EXCEEDED"
		provErr.Message = "request timed out"
		provErr.Timeout = true
	}
	return provErr
}

// handleErrorResponse handles Google API error envelopes
func (a *GeminiAdapter) handleErrorResponse(model string, statusCode int, body []byte) error {
	// 400 means the payload is invalid for every model, so it is never retried.
	retryable := statusCode != http.StatusBadRequest

	var errResp googleErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(statusCode)
		}
		return a.newError(model, "UNKNOWN_ERROR", message, statusCode, retryable, nil)
	}

	return a.newError(
		model,
		errResp.Error.Status,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Message),
	)
}

func (a *GeminiAdapter) newError(model, code, message string, statusCode int, retryable bool, cause error) *providers.ProviderError {
	provErr := providers.NewProviderError(a.Name(), code, message, statusCode, retryable, cause)
	provErr.Model = model
	return provErr
}

// Google-specific error envelope

type googleErrorResponse struct {
	Error googleError `json:"error"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
