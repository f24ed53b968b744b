package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/logger"
	"github.com/bacaltosclinic/portal-api/internal/models"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError sends an error JSON response with a human-readable message.
// The body shape is {"error": "..."} on every failure path.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

// respondAPIError maps an error onto the taxonomy's HTTP status. The wrapped
// cause is logged server-side; only the caller-safe message is serialized.
func respondAPIError(w http.ResponseWriter, log *zap.Logger, err error) {
	apiErr := models.AsAPIError(err)
	if apiErr == nil {
		return
	}

	if apiErr.Err != nil {
		log.Error("request_failed",
			zap.Int("status_code", apiErr.HTTPStatus()),
			zap.String("message", apiErr.Message),
			zap.String("cause", logger.SanitizeError(apiErr.Err)),
		)
	}

	respondError(w, apiErr.HTTPStatus(), apiErr.Message)
}

// decodeJSON decodes a request body into dst, returning a client-safe error
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.InvalidArgument("Invalid JSON body")
	}
	return nil
}
