// Package health runs component health checks and serves probe endpoints.
package health

import (
	"context"
	"time"
)

// CheckStatus represents the result of a health check.
type CheckStatus int

const (
	StatusHealthy CheckStatus = iota
	StatusDegraded
	StatusUnhealthy
	StatusUnknown
)

func (s CheckStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"healthy"`:
		*s = StatusHealthy
	case `"degraded"`:
		*s = StatusDegraded
	case `"unhealthy"`:
		*s = StatusUnhealthy
	default:
		*s = StatusUnknown
	}
	return nil
}

// CheckResult contains the result of one health check.
type CheckResult struct {
	Status    CheckStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Component string        `json:"component"`
	Critical  bool          `json:"critical"`
}

// Checker is one component health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult

	// IsCritical reports whether failure marks the whole service unhealthy.
	IsCritical() bool
	Timeout() time.Duration
}

// Overall is the aggregated service health.
type Overall struct {
	Status     CheckStatus            `json:"status"`
	Ready      bool                   `json:"ready"`
	Timestamp  time.Time              `json:"timestamp"`
	Components map[string]CheckResult `json:"components,omitempty"`
}
