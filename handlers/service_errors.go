package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/chat-fallback-proxy/services"
	"github.com/upb/chat-fallback-proxy/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := services.GetErrorMessage(err)

	var status int
	switch {
	case services.IsValidationError(err):
		status = http.StatusBadRequest

	case services.IsConfigurationError(err):
		logger.Error("service misconfigured", zap.Error(err))
		if err := utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{
			Error:   "configuration_error",
			Message: message,
			Status:  http.StatusInternalServerError,
		}); err != nil {
			logger.Error("failed to write configuration error response", zap.Error(err))
		}
		return

	case services.IsRateLimitError(err):
		status = http.StatusTooManyRequests

	case services.IsBadRequestError(err):
		status = http.StatusBadRequest

	case services.IsTimeoutError(err):
		status = http.StatusGatewayTimeout

	case services.IsExternalError(err):
		status = http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		// request deadline from the router, not a single attempt
		status = http.StatusGatewayTimeout
		message = services.MessageTimeout

	case errors.Is(err, context.Canceled):
		logger.Info("client went away before completion", zap.Error(err))
		return

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		status = http.StatusInternalServerError
		message = "An internal error occurred"
		details = nil

	default:
		// Unknown error type - log and return internal error
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		status = http.StatusInternalServerError
		message = "An unexpected error occurred"
		details = nil
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}

	if err := utils.WriteError(w, status, message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	// Generic validation error
	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
