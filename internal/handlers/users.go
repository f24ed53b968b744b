package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/provisioning"
	"github.com/bacaltosclinic/portal-api/internal/request"
	"github.com/bacaltosclinic/portal-api/internal/validation"
)

// UserHandler handles the admin user-management API. The bearer token is
// passed through to the coordinator, which performs the admin check itself so
// no mutation can run without a verified admin caller.
type UserHandler struct {
	coordinator *provisioning.Coordinator
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(coordinator *provisioning.Coordinator, logger *zap.Logger) *UserHandler {
	return &UserHandler{coordinator: coordinator, logger: logger}
}

// RegisterRoutes registers user management routes on the given router.
// The router should already have the /api/v1/users prefix.
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.Me).Methods("GET")
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
}

// List returns all user records, newest first, optionally filtered by ?role=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var roleFilter *models.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := validation.ParseRole(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		roleFilter = &role
	}

	records, err := h.coordinator.ListUsers(r.Context(), request.BearerToken(r), roleFilter)
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": records})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create provisions a staff user (admin, doctor, or receptionist)
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	record, err := h.coordinator.CreateUser(r.Context(), request.BearerToken(r), req.Email, req.Password, req.Role)
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    record,
	})
}

// Update applies a partial update (email and/or role) to a user record
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var updates models.UserUpdates
	if err := decodeJSON(r, &updates); err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	record, err := h.coordinator.UpdateUser(r.Context(), request.BearerToken(r), id, updates)
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    record,
	})
}

// Delete deprovisions a user from both stores
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.coordinator.DeleteUser(r.Context(), request.BearerToken(r), id); err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}

// Me returns the caller's own record. No role is required.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	record, err := h.coordinator.GetCurrentUser(r.Context(), request.BearerToken(r))
	if err != nil {
		respondAPIError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": record})
}
