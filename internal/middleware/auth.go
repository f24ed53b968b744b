package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/database"
	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/request"
)

// Auth creates authentication middleware that verifies bearer tokens locally
// against the provider's JWKS and joins the caller's record. It attaches a
// verified Caller to the request context. It does not enforce a role; admin
// gating happens inside the provisioning coordinator so that no mutation can
// bypass it.
func Auth(verifier *identity.Verifier, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := request.BearerToken(r)
			if token == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing or malformed Authorization header", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			id, err := uuid.Parse(claims.Sub)
			if err != nil {
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			record, err := users.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					// The identity exists but provisioning never completed a
					// record for it
					respondAuthError(w, http.StatusForbidden, "No user record for this account", logger)
					return
				}
				logger.Error("caller_record_lookup_failed", zap.Error(err))
				respondAuthError(w, http.StatusInternalServerError, "Failed to fetch user record", logger)
				return
			}

			caller := &models.Caller{ID: record.ID, Email: record.Email, Role: record.Role}
			next.ServeHTTP(w, r.WithContext(request.WithCaller(ctx, caller)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]any{"error": message}); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
