package handlers

import (
	"net/http"
	"time"
)

const apiVersion = "1.0.0"

// Root handles the / endpoint with basic API information
func Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Clinic Portal API",
		"version": apiVersion,
		"status":  "Running",
		"endpoints": []string{
			"GET / - Root endpoint",
			"GET /health - Health check",
			"GET /api - API information",
		},
	})
}

// APIInfo handles the /api endpoint
func APIInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Clinic Portal API",
		"version": apiVersion,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /api - API information",
		},
	})
}

// Version handles the /version endpoint with minimal version info
func Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"version":   apiVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
