package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/chat-fallback-proxy/internal/observability"
	"github.com/upb/chat-fallback-proxy/services"
	"github.com/upb/chat-fallback-proxy/services/fallback"
	"github.com/upb/chat-fallback-proxy/services/providers"
	"github.com/upb/chat-fallback-proxy/services/routing"
	"go.uber.org/zap"
)

// Executor runs a conversation against an ordered list of models
type Executor interface {
	Execute(ctx context.Context, contents []providers.Content, ordered []string) (*fallback.Result, error)
}

// Result is a completed chat request
type Result struct {
	// ExecutionID correlates every log line of one request
	ExecutionID string

	// Model that produced the reply
	Model string

	// Attempts is the number of upstream calls made
	Attempts int

	// Body is the upstream response body, returned to the caller verbatim
	Body []byte

	// Latency of the whole fallback run
	Latency time.Duration
}

// ChatService orchestrates one completion request: credential check, model
// prioritization, then the fallback run.
type ChatService struct {
	hasCredential bool
	prioritizer   *routing.Prioritizer
	executor      Executor
	logger        *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(hasCredential bool, prioritizer *routing.Prioritizer, executor Executor, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		hasCredential: hasCredential,
		prioritizer:   prioritizer,
		executor:      executor,
		logger:        logger,
	}
}

// Complete runs the conversation through the prioritized fallback sequence.
// Upstream failures are returned as *services.DomainError.
func (s *ChatService) Complete(ctx context.Context, contents []providers.Content) (*Result, error) {
	if !s.hasCredential {
		return nil, services.NewDomainError(services.ErrorTypeConfiguration, services.MessageMissingAPIKey, nil)
	}
	if len(contents) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "messages must be a non-empty array", nil)
	}

	executionID := uuid.New().String()
	logger := observability.FromContext(ctx, s.logger).With(zap.String("execution_id", executionID))
	ctx = observability.WithLogger(ctx, logger)

	totalChars := routing.TotalChars(contents)
	order := s.prioritizer.ChooseOrder(totalChars)

	logger.Info("starting chat completion",
		zap.Int("messages", len(contents)),
		zap.Int("total_chars", totalChars),
		zap.String("regime", string(s.prioritizer.RegimeFor(totalChars))),
		zap.Strings("order", order))

	start := time.Now()
	result, err := s.executor.Execute(ctx, contents, order)
	latency := time.Since(start)
	if err != nil {
		translated := services.TranslateUpstream(err)
		logger.Warn("chat completion failed",
			zap.Duration("latency", latency),
			zap.String("error_type", string(services.GetErrorType(translated))),
			zap.Error(err))
		return nil, translated
	}

	logger.Info("chat completion finished",
		zap.String("model", result.Model),
		zap.Int("attempts", result.Attempts),
		zap.Duration("latency", latency))

	return &Result{
		ExecutionID: executionID,
		Model:       result.Model,
		Attempts:    result.Attempts,
		Body:        result.Raw,
		Latency:     latency,
	}, nil
}
