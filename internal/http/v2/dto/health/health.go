// Package health contiene los DTOs de /healthz y /readyz.
package health

import "time"

// Estados agregados de readiness.
const (
	StatusReady       = "ready"
	StatusUnavailable = "unavailable"
)

// HealthStatus es el estado de un componente individual.
type HealthStatus struct {
	Status    string    `json:"status"` // "ok" | "error"
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Cached    bool      `json:"cached,omitempty"`
}

// HealthResponse es la respuesta de /readyz.
type HealthResponse struct {
	Status     string                  `json:"status"` // "ready" | "unavailable"
	Components map[string]HealthStatus `json:"components"`
	Version    string                  `json:"version,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// LivenessResponse es la respuesta de /healthz.
type LivenessResponse struct {
	Status string `json:"status"`
}
