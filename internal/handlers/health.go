package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bacaltosclinic/portal-api/internal/queue"
)

// Pinger is anything that can be health-checked with a context
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger matches the rate limiter's Redis wrapper
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	db        Pinger
	redis     RedisPinger
	publisher queue.Publisher
	started   time.Time
}

// NewHealthChecker creates a health checker over the service's dependencies
func NewHealthChecker(db Pinger, redis RedisPinger, publisher queue.Publisher) *HealthChecker {
	return &HealthChecker{
		db:        db,
		redis:     redis,
		publisher: publisher,
		started:   time.Now(),
	}
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health handles the basic /health endpoint: the server is up
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   "Clinic Portal API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Seconds(),
	})
}

// Healthz handles /healthz; ?mode=extended checks each dependency
func (h *HealthChecker) Healthz(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "OK",
		Message:   "Clinic Portal API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Seconds(),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "healthy"
		}
	}

	if h.publisher != nil {
		if err := h.publisher.HealthCheck(ctx); err != nil {
			checks["queue"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["queue"] = "healthy"
		}
	}

	response.Checks = checks
	statusCode := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, response)
}
