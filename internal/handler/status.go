package handler

import (
	"net/http"
	"time"

	"agrovet-pos/internal/service"
	"agrovet-pos/pkg/response"
)

// StatusHandler exposes health and connectivity status endpoints.
type StatusHandler struct {
	offline   *service.Offline
	startTime time.Time
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(offline *service.Offline) *StatusHandler {
	return &StatusHandler{
		offline:   offline,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	response.OK(w, resp)
}

// Status handles GET /api/v1/status
//
// Reports the current connectivity state alongside the number of records
// still waiting to be synchronized, so a client can render an offline
// banner and a pending-changes badge from a single call.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	online := h.offline.Online()

	pending, err := h.offline.PendingSyncs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"online":         online,
		"pending_syncs":  pending,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"server_time":    time.Now().UTC().Format(time.RFC3339),
	})
}
