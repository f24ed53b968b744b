package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/provisioning"
)

// AuthHandler handles the public login and registration endpoints
type AuthHandler struct {
	coordinator *provisioning.Coordinator
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(coordinator *provisioning.Coordinator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{coordinator: coordinator, logger: logger}
}

// RegisterRoutes registers the public auth routes on the given router
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/register", h.Register).Methods("POST")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Login authenticates against the identity provider and returns the user's
// record with a provider-issued session. A role in the body is a hint the
// stored role must match.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	result, err := h.coordinator.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user": map[string]any{
			"id":    result.User.ID,
			"email": result.User.Email,
			"role":  result.User.Role,
		},
		"session": result.Session,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register is the public patient registration endpoint. Non-patient roles are
// rejected; staff accounts are created by admins through the user management API.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	record, err := h.coordinator.RegisterPatient(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user": map[string]any{
			"id":    record.ID,
			"email": record.Email,
			"role":  record.Role,
		},
	})
}
