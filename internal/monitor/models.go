package monitor

import "time"

// State is the health classification of one credential's broker
// connectivity
type State string

const (
	StateUnknown  State = "unknown"
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
)

// HealthStatus is the live picture for one credential. It is a soft cache:
// the monitor rebuilds it from Unknown on restart, so nothing here is a
// source of truth.
type HealthStatus struct {
	CredentialID        string    `json:"credential_id"`
	State               State     `json:"state"`
	ResponseTimeMs      int64     `json:"response_time_ms"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UptimePercentage    float64   `json:"uptime_percentage"`
	TotalChecks         int       `json:"total_checks"`
	LastError           string    `json:"last_error,omitempty"`
}

// Config controls one user's polling loop
type Config struct {
	CheckInterval          time.Duration
	Timeout                time.Duration
	MaxConsecutiveFailures int
}

// DefaultConfig returns the standard monitoring cadence
func DefaultConfig() Config {
	return Config{
		CheckInterval:          5 * time.Minute,
		Timeout:                30 * time.Second,
		MaxConsecutiveFailures: 3,
	}
}

func (c Config) withDefaults(d Config) Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = d.MaxConsecutiveFailures
	}
	return c
}

// Stats aggregates a user's health statuses
type Stats struct {
	TotalCredentials      int     `json:"total_credentials"`
	HealthyConnections    int     `json:"healthy_connections"`
	DegradedConnections   int     `json:"degraded_connections"`
	FailedConnections     int     `json:"failed_connections"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	AverageUptime         float64 `json:"average_uptime"`
}
