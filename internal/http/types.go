package http

import (
	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/session"
	"github.com/fyrsmithlabs/thinkd/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Sessions  int                     `json:"sessions"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// SessionListResponse is the response body for GET /api/v1/sessions.
type SessionListResponse struct {
	Sessions []session.View `json:"sessions"`
	Count    int            `json:"count"`
}

// ResetResponse is the response body for DELETE /api/v1/sessions/:id.
type ResetResponse struct {
	SessionID string `json:"sessionId"`
	Existed   bool   `json:"existed"`
}

// FeatureRequest is the request body for PUT /api/v1/features/:name.
type FeatureRequest struct {
	Enabled *bool `json:"enabled"`
}

// FeatureResponse is the response body for the feature endpoints.
type FeatureResponse struct {
	Features features.Flags `json:"features"`
}
