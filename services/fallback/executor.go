package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/upb/chat-fallback-proxy/internal/observability"
	"github.com/upb/chat-fallback-proxy/services/providers"
	"go.uber.org/zap"
)

const (
	DefaultAttemptTimeout = 45 * time.Second
	DefaultBackoff        = 500 * time.Millisecond
)

// Fixed generation parameters sent with every attempt
const (
	MaxOutputTokens = 8192
	Temperature     = 0.7
	TopP            = 0.95
	TopK            = 40
)

var (
	// ErrNoCandidates is returned when Execute is called with an empty ordering
	ErrNoCandidates = errors.New("no candidate models to try")

	// ErrNoModelResponded is returned when every candidate ran but none produced an error to report
	ErrNoModelResponded = errors.New("no model produced a response")
)

// Outcome classifies one upstream attempt
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeSoftFailure  Outcome = "soft_failure"
	OutcomeRetryable    Outcome = "retryable_failure"
	OutcomeNonRetryable Outcome = "non_retryable_failure"
)

// SoftFailureError describes a reply that arrived but could not be used
type SoftFailureError struct {
	Model        string
	FinishReason string
	BlockReason  string
	Blocked      bool
}

func (e *SoftFailureError) Error() string {
	switch {
	case e.BlockReason != "":
		return fmt.Sprintf("model %s: prompt blocked (%s)", e.Model, e.BlockReason)
	case e.FinishReason != "":
		return fmt.Sprintf("model %s: unusable reply (finish reason %s)", e.Model, e.FinishReason)
	default:
		return fmt.Sprintf("model %s: empty reply", e.Model)
	}
}

// IsBlocked reports whether err is a soft failure caused by content blocking
func IsBlocked(err error) bool {
	var soft *SoftFailureError
	if errors.As(err, &soft) {
		return soft.Blocked
	}
	return false
}

// IsSoftFailure reports whether err is a soft failure
func IsSoftFailure(err error) bool {
	var soft *SoftFailureError
	return errors.As(err, &soft)
}

// Result is a successful execution
type Result struct {
	// Model that produced the accepted reply
	Model string

	// Attempts is the number of upstream calls made, including the accepted one
	Attempts int

	// Response is the parsed upstream reply
	Response *providers.GenerateResponse

	// Raw is the upstream body as received
	Raw json.RawMessage
}

// Option configures an Executor
type Option func(*Executor)

// WithAttemptTimeout bounds each upstream call
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithBackoff sets the pause after a retryable failure
func WithBackoff(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.backoff = d
		}
	}
}

// Executor tries candidate models one at a time until one gives a usable reply.
// It holds no per-request state and is safe for concurrent use.
type Executor struct {
	client         providers.Client
	logger         *zap.Logger
	attemptTimeout time.Duration
	backoff        time.Duration
}

// NewExecutor creates a new fallback executor
func NewExecutor(client providers.Client, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		client:         client,
		logger:         logger,
		attemptTimeout: DefaultAttemptTimeout,
		backoff:        DefaultBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends the conversation to each model in order and returns the first
// accepted reply. On exhaustion it returns the last recorded failure.
func (e *Executor) Execute(ctx context.Context, contents []providers.Content, ordered []string) (*Result, error) {
	if len(ordered) == 0 {
		return nil, ErrNoCandidates
	}

	req := NewGenerateRequest(contents)
	logger := observability.FromContext(ctx, e.logger)

	var lastErr error
	for i, model := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := i + 1
		start := time.Now()
		resp, err := e.callModel(ctx, model, req)
		latency := time.Since(start)

		// The caller went away; nothing below can be delivered.
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("attempt aborted by caller",
				zap.String("model", model),
				zap.Int("attempt", attempt),
				zap.Error(ctxErr))
			return nil, ctxErr
		}

		outcome, err := Classify(model, resp, err)
		fields := []zap.Field{
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.String("outcome", string(outcome)),
			zap.Duration("latency", latency),
		}

		switch outcome {
		case OutcomeAccepted:
			logger.Info("model attempt accepted", append(fields,
				zap.String("finish_reason", resp.FinishReason()),
				zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount))...)
			raw := resp.Raw
			if len(raw) == 0 {
				if raw, err = json.Marshal(resp); err != nil {
					return nil, fmt.Errorf("encode reply from %s: %w", model, err)
				}
			}
			return &Result{
				Model:    model,
				Attempts: attempt,
				Response: resp,
				Raw:      raw,
			}, nil

		case OutcomeSoftFailure:
			logger.Warn("model attempt gave unusable reply", append(fields, zap.Error(err))...)
			lastErr = err

		case OutcomeNonRetryable:
			logger.Error("model attempt rejected request", append(fields,
				zap.Int("status", providers.StatusCode(err)),
				zap.Error(err))...)
			return nil, err

		case OutcomeRetryable:
			logger.Warn("model attempt failed", append(fields,
				zap.Int("status", providers.StatusCode(err)),
				zap.Bool("timeout", providers.IsTimeout(err)),
				zap.Error(err))...)
			lastErr = err

			if attempt < len(ordered) {
				if err := e.wait(ctx); err != nil {
					return nil, err
				}
			}
		}
	}

	if lastErr == nil {
		return nil, ErrNoModelResponded
	}
	logger.Error("all candidate models failed",
		zap.Int("attempts", len(ordered)),
		zap.Error(lastErr))
	return nil, lastErr
}

// callModel makes one upstream call under the per-attempt deadline
func (e *Executor) callModel(ctx context.Context, model string, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	resp, err := e.client.GenerateContent(attemptCtx, model, req)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !providers.IsTimeout(err) {
		// Clients that do not tag deadlines themselves still count as a timeout.
		timeoutErr := providers.NewProviderError(e.client.Name(), "DEADLINE_EXCEEDED", "request timed out", 0, true, err)
		timeoutErr.Model = model
		timeoutErr.Timeout = true
		return nil, timeoutErr
	}
	return resp, err
}

func (e *Executor) wait(ctx context.Context) error {
	if e.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Classify decides what one attempt's result means for the fallback loop.
// The returned error is nil only for OutcomeAccepted.
func Classify(model string, resp *providers.GenerateResponse, err error) (Outcome, error) {
	if err != nil {
		if providers.IsInvalidRequest(err) {
			return OutcomeNonRetryable, err
		}
		return OutcomeRetryable, err
	}

	if block := resp.BlockReason(); block != "" {
		return OutcomeSoftFailure, &SoftFailureError{Model: model, BlockReason: block, Blocked: true}
	}

	reason := resp.FinishReason()
	if resp.Text() != "" && (reason == providers.FinishReasonStop || reason == providers.FinishReasonMaxTokens) {
		return OutcomeAccepted, nil
	}

	return OutcomeSoftFailure, &SoftFailureError{
		Model:        model,
		FinishReason: reason,
		Blocked:      blockedReasons[reason],
	}
}

var blockedReasons = map[string]bool{
	providers.FinishReasonSafety:            true,
	providers.FinishReasonBlocklist:         true,
	providers.FinishReasonProhibitedContent: true,
	providers.FinishReasonSPII:              true,
	providers.FinishReasonRecitation:        true,
}

// NewGenerateRequest wraps a conversation with the fixed generation config and safety policy
func NewGenerateRequest(contents []providers.Content) *providers.GenerateRequest {
	temperature := Temperature
	topP := TopP
	topK := TopK

	return &providers.GenerateRequest{
		Contents: contents,
		GenerationConfig: &providers.GenerationConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			TopK:            &topK,
			MaxOutputTokens: MaxOutputTokens,
		},
		SafetySettings: []providers.SafetySetting{
			{Category: providers.HarmCategoryHarassment, Threshold: providers.BlockMediumAndAbove},
			{Category: providers.HarmCategoryHateSpeech, Threshold: providers.BlockMediumAndAbove},
			{Category: providers.HarmCategorySexuallyExplicit, Threshold: providers.BlockMediumAndAbove},
			{Category: providers.HarmCategoryDangerousContent, Threshold: providers.BlockMediumAndAbove},
		},
	}
}
