package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/chat-fallback-proxy/services/fallback"
	"github.com/upb/chat-fallback-proxy/services/providers"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeBadRequest    ErrorType = "bad_request"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeExternal      ErrorType = "external"
	ErrorTypeInternal      ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// User-facing messages for upstream failures
const (
	MessageTooManyRequests = "Too many requests: the model quota has been exceeded. Please wait a moment and try again."
	MessageBadRequest      = "Bad request: the conversation was rejected or blocked by the model's content policy."
	MessageTimeout         = "Timeout: the model took too long to respond. Please try again."
	MessageRetryLater      = "The assistant is temporarily unavailable. Please try again later."
	MessageMissingAPIKey   = "Configuration error: the upstream API key is not set."
)

// Domain error variables. These are templates for errors.Is; build new
// instances with NewDomainError before attaching details.

var (
	ErrInvalidInput      = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyConversation = NewDomainError(ErrorTypeValidation, "messages must be a non-empty array", nil)

	ErrMissingAPIKey = NewDomainError(ErrorTypeConfiguration, MessageMissingAPIKey, nil)

	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, MessageTooManyRequests, nil)
	ErrBadRequest        = NewDomainError(ErrorTypeBadRequest, MessageBadRequest, nil)
	ErrUpstreamTimeout   = NewDomainError(ErrorTypeTimeout, MessageTimeout, nil)
	ErrProviderError     = NewDomainError(ErrorTypeExternal, MessageRetryLater, nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// TranslateUpstream converts a fallback failure into one of the user-facing
// categories: quota, bad request, timeout or generic. Domain errors and
// context errors pass through unchanged.
func TranslateUpstream(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var translated *DomainError
	switch {
	case providers.IsQuota(err):
		translated = NewDomainError(ErrorTypeRateLimit, MessageTooManyRequests, err)
	case providers.IsInvalidRequest(err), fallback.IsBlocked(err):
		translated = NewDomainError(ErrorTypeBadRequest, MessageBadRequest, err)
	case providers.IsTimeout(err):
		translated = NewDomainError(ErrorTypeTimeout, MessageTimeout, err)
	default:
		translated = NewDomainError(ErrorTypeExternal, MessageRetryLater, err)
	}

	if provErr, ok := providers.AsProviderError(err); ok {
		translated.WithDetail("model", provErr.Model)
		if provErr.StatusCode != 0 {
			translated.WithDetail("upstream_status", provErr.StatusCode)
		}
	}
	var soft *fallback.SoftFailureError
	if errors.As(err, &soft) {
		translated.WithDetail("model", soft.Model)
		if soft.FinishReason != "" {
			translated.WithDetail("finish_reason", soft.FinishReason)
		}
		if soft.BlockReason != "" {
			translated.WithDetail("block_reason", soft.BlockReason)
		}
	}
	return translated
}

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfiguration
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsBadRequestError checks if an error is an upstream bad request error
func IsBadRequestError(err error) bool {
	return GetErrorType(err) == ErrorTypeBadRequest
}

// IsTimeoutError checks if an error is an upstream timeout error
func IsTimeoutError(err error) bool {
	return GetErrorType(err) == ErrorTypeTimeout
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the user-facing message of a domain error, or "" if not a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
