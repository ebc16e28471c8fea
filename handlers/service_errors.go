package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/utils"
)

// HandleServiceError maps service errors to HTTP responses.
// Auth errors keep their status and code; anything else is logged and hidden behind a generic 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	if _, ok := shared.AsAuthError(err); !ok {
		logger.Error("internal server error", zap.Error(err))
	}

	if writeErr := utils.WriteAuthError(w, err); writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}
