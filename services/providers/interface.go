package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Client is the upstream text-generation service, addressed per call by model
type Client interface {
	// Name returns the provider name (e.g., "gemini")
	Name() string

	// GenerateContent sends one conversation to one model
	GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error)

	// ListModels returns metadata for every model this client knows about
	ListModels() []ModelInfo
}

// Finish reasons reported by the upstream in candidates[].finishReason
const (
	FinishReasonStop              = "STOP"
	FinishReasonMaxTokens         = "MAX_TOKENS"
	FinishReasonSafety            = "SAFETY"
	FinishReasonRecitation        = "RECITATION"
	FinishReasonBlocklist         = "BLOCKLIST"
	FinishReasonProhibitedContent = "PROHIBITED_CONTENT"
	FinishReasonSPII              = "SPII"
	FinishReasonOther             = "OTHER"
	FinishReasonUnspecified       = "FINISH_REASON_UNSPECIFIED"
)

// Harm categories and thresholds used in safetySettings
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
)

// GenerateRequest is the generateContent request body
type GenerateRequest struct {
	// Contents is the full conversation, oldest first
	Contents []Content `json:"contents"`

	// GenerationConfig bounds output length and randomness
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`

	// SafetySettings sets per-category block thresholds
	SafetySettings []SafetySetting `json:"safetySettings,omitempty"`
}

// Content is one conversation turn
type Content struct {
	// Role is "user" or "model"
	Role string `json:"role,omitempty"`

	// Parts holds the text segments of the turn
	Parts []Part `json:"parts"`
}

// Part is a single text segment
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig holds sampling parameters
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// SafetySetting sets the block threshold for one harm category
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateResponse is the generateContent response body
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  UsageMetadata   `json:"usageMetadata"`
	ModelVersion   string          `json:"modelVersion,omitempty"`

	// Raw is the upstream body exactly as received
	Raw json.RawMessage `json:"-"`
}

// Candidate is one generated answer
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

// PromptFeedback reports whether the prompt itself was blocked
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata holds token accounting
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text concatenates the text parts of the first candidate
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FinishReason returns the first candidate's finish reason, or "" when there is none
func (r *GenerateResponse) FinishReason() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].FinishReason
}

// BlockReason returns the prompt block reason, or "" when the prompt was not blocked
func (r *GenerateResponse) BlockReason() string {
	if r == nil || r.PromptFeedback == nil {
		return ""
	}
	return r.PromptFeedback.BlockReason
}

// ModelInfo contains metadata about a model
type ModelInfo struct {
	// ID is the model identifier used in the request path
	ID string `json:"id"`

	// Name is the human-readable name
	Name string `json:"name"`

	// Provider that offers this model
	Provider string `json:"provider"`

	// Tier is "pro" for high capability or "flash" for low latency
	Tier string `json:"tier"`

	// Generation is the model family version, e.g. "2.5"
	Generation string `json:"generation"`

	// ContextWindow size in tokens
	ContextWindow int `json:"context_window"`

	// MaxOutputTokens supported by the model
	MaxOutputTokens int `json:"max_output_tokens"`
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Model the request was addressed to
	Model string

	// Code is the upstream status string (e.g. "INVALID_ARGUMENT")
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (0 for transport failures)
	StatusCode int

	// Retryable indicates the next candidate may still succeed
	Retryable bool

	// Timeout marks an attempt that exceeded its wait budget
	Timeout bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// AsProviderError extracts a ProviderError from an error chain
func AsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if provErr, ok := AsProviderError(err); ok {
		return provErr.Retryable
	}
	return false
}

// IsInvalidRequest reports an upstream request-validation rejection (HTTP 400)
func IsInvalidRequest(err error) bool {
	if provErr, ok := AsProviderError(err); ok {
		return provErr.StatusCode == 400
	}
	return false
}

// IsTimeout reports an attempt that exceeded its wait budget
func IsTimeout(err error) bool {
	if provErr, ok := AsProviderError(err); ok {
		return provErr.Timeout
	}
	return false
}

// IsQuota reports a quota or rate-limit rejection
func IsQuota(err error) bool {
	provErr, ok := AsProviderError(err)
	if !ok {
		return false
	}
	if provErr.StatusCode == 429 || provErr.Code == "RESOURCE_EXHAUSTED" {
		return true
	}
	return strings.Contains(strings.ToLower(provErr.Message), "quota")
}

// StatusCode returns the upstream HTTP status carried by err, or 0
func StatusCode(err error) int {
	if provErr, ok := AsProviderError(err); ok {
		return provErr.StatusCode
	}
	return 0
}
