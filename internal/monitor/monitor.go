package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tradevault/tradevault-api/internal/audit"
	"github.com/tradevault/tradevault-api/internal/broker"
	"github.com/tradevault/tradevault-api/internal/vault"
)

// uptimeWindow is the number of trailing checks the uptime ratio is computed
// over
const uptimeWindow = 100

// Registry owns one polling loop per monitored user. It is an explicit,
// injectable value rather than an ambient singleton so tests can run
// isolated registries; the process wires exactly one into the HTTP layer so
// loops survive across requests.
type Registry struct {
	vault    *vault.Service
	client   broker.Client
	auditor  *audit.Recorder
	defaults Config

	mu      sync.Mutex
	loops   map[string]*userLoop
	health  map[string]*HealthStatus // keyed userID:credentialID
	windows map[string][]bool
}

type userLoop struct {
	cancel context.CancelFunc
	cfg    Config
}

// NewRegistry creates a monitoring registry
func NewRegistry(vaultSvc *vault.Service, client broker.Client, auditor *audit.Recorder, defaults Config) *Registry {
	return &Registry{
		vault:    vaultSvc,
		client:   client,
		auditor:  auditor,
		defaults: defaults.withDefaults(DefaultConfig()),
		loops:    make(map[string]*userLoop),
		health:   make(map[string]*HealthStatus),
		windows:  make(map[string][]bool),
	}
}

// StartMonitoring begins a polling loop over all of the user's active
// credentials. Starting twice replaces the previous loop rather than
// stacking a second one.
func (r *Registry) StartMonitoring(userID string, cfg Config) {
	cfg = cfg.withDefaults(r.defaults)

	r.mu.Lock()
	if existing, ok := r.loops[userID]; ok {
		existing.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.loops[userID] = &userLoop{cancel: cancel, cfg: cfg}
	r.mu.Unlock()

	go r.run(ctx, userID, cfg)

	log.Info().
		Str("component", "connection_monitor").
		Str("user_id", userID).
		Dur("check_interval", cfg.CheckInterval).
		Msg("started connection monitoring")
}

// StopMonitoring cancels the user's loop. Health statuses are retained but
// no longer updated; callers should treat last_checked_at age as a
// staleness signal.
func (r *Registry) StopMonitoring(userID string) {
	r.mu.Lock()
	loop, ok := r.loops[userID]
	if ok {
		delete(r.loops, userID)
	}
	r.mu.Unlock()

	if ok {
		loop.cancel()
		log.Info().
			Str("component", "connection_monitor").
			Str("user_id", userID).
			Msg("stopped connection monitoring")
	}
}

// IsMonitoring reports whether a loop is active for the user
func (r *Registry) IsMonitoring(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loops[userID]
	return ok
}

// StopAll cancels every loop; used on shutdown
func (r *Registry) StopAll() {
	r.mu.Lock()
	loops := r.loops
	r.loops = make(map[string]*userLoop)
	r.mu.Unlock()

	for _, loop := range loops {
		loop.cancel()
	}
}

// ForceHealthCheck runs one check immediately, outside the schedule, and
// returns the updated status. Returns nil if the user isn't currently
// monitored or the credential doesn't exist.
func (r *Registry) ForceHealthCheck(ctx context.Context, userID, credentialID string) *HealthStatus {
	r.mu.Lock()
	loop, ok := r.loops[userID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if safe, err := r.vault.GetSafe(userID, credentialID); err != nil || safe == nil {
		return nil
	}

	r.checkCredential(ctx, userID, credentialID, loop.cfg)
	return r.getStatus(userID, credentialID)
}

// GetAllHealthStatuses returns the current statuses for a user's monitored
// credentials
func (r *Registry) GetAllHealthStatuses(userID string) []HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := userID + ":"
	statuses := make([]HealthStatus, 0)
	for key, h := range r.health {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			statuses = append(statuses, *h)
		}
	}
	return statuses
}

// GetMonitoringStats aggregates a user's statuses
func (r *Registry) GetMonitoringStats(userID string) Stats {
	statuses := r.GetAllHealthStatuses(userID)

	stats := Stats{TotalCredentials: len(statuses)}
	if len(statuses) == 0 {
		return stats
	}

	var totalResponse int64
	var totalUptime float64
	for _, h := range statuses {
		switch h.State {
		case StateHealthy:
			stats.HealthyConnections++
		case StateDegraded:
			stats.DegradedConnections++
		case StateFailed:
			stats.FailedConnections++
		}
		totalResponse += h.ResponseTimeMs
		totalUptime += h.UptimePercentage
	}
	stats.AverageResponseTimeMs = float64(totalResponse) / float64(len(statuses))
	stats.AverageUptime = totalUptime / float64(len(statuses))
	return stats
}

// run is the per-user polling loop. One tick checks every active credential
// sequentially; per-credential failures never break the loop.
func (r *Registry) run(ctx context.Context, userID string, cfg Config) {
	logger := log.With().
		Str("component", "connection_monitor").
		Str("user_id", userID).
		Logger()

	// First pass shortly after start, then on the interval
	r.checkUser(ctx, userID, cfg, logger)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("monitoring loop cancelled")
			return
		case <-ticker.C:
			r.checkUser(ctx, userID, cfg, logger)
		}
	}
}

func (r *Registry) checkUser(ctx context.Context, userID string, cfg Config, logger zerolog.Logger) {
	creds, err := r.vault.List(userID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list credentials for health check")
		return
	}

	active := make(map[string]bool, len(creds))
	for _, cred := range creds {
		active[cred.CredentialID] = true
	}
	r.pruneStatuses(userID, active)

	for _, cred := range creds {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.checkCredential(ctx, userID, cred.CredentialID, cfg)
	}
}

// pruneStatuses drops statuses for credentials that are no longer active, so
// deleting a credential also retires its health record on the next tick
func (r *Registry) pruneStatuses(userID string, active map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := userID + ":"
	for key := range r.health {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if !active[key[len(prefix):]] {
			delete(r.health, key)
			delete(r.windows, key)
		}
	}
}

// checkCredential runs a single health check and advances the state
// machine. A decrypt failure or broker error counts as one failure for this
// credential only.
func (r *Registry) checkCredential(ctx context.Context, userID, credentialID string, cfg Config) {
	start := time.Now()

	var checkErr error
	plain, err := r.vault.Get(userID, credentialID)
	if err != nil {
		checkErr = err
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		checkErr = r.client.Ping(pingCtx, broker.Credentials{
			Server: plain.Server,
			Login:  plain.Login,
			Secret: plain.Secret,
		})
		cancel()
	}

	elapsed := time.Since(start).Milliseconds()
	r.recordResult(userID, credentialID, cfg, checkErr, elapsed)
}

func (r *Registry) recordResult(userID, credentialID string, cfg Config, checkErr error, responseMs int64) {
	key := userID + ":" + credentialID

	r.mu.Lock()
	h, ok := r.health[key]
	if !ok {
		h = &HealthStatus{CredentialID: credentialID, State: StateUnknown, UptimePercentage: 100}
		r.health[key] = h
	}

	prevState := h.State
	h.ResponseTimeMs = responseMs
	h.LastCheckedAt = time.Now()
	h.TotalChecks++

	success := checkErr == nil
	if success {
		// Any success resets directly to healthy
		h.State = StateHealthy
		h.ConsecutiveFailures = 0
		h.LastError = ""
	} else {
		h.ConsecutiveFailures++
		h.LastError = checkErr.Error()
		if h.ConsecutiveFailures >= cfg.MaxConsecutiveFailures {
			h.State = StateFailed
		} else {
			h.State = StateDegraded
		}
	}

	window := append(r.windows[key], success)
	if len(window) > uptimeWindow {
		window = window[len(window)-uptimeWindow:]
	}
	r.windows[key] = window

	successes := 0
	for _, s := range window {
		if s {
			successes++
		}
	}
	h.UptimePercentage = float64(successes) / float64(len(window)) * 100

	state := h.State
	failures := h.ConsecutiveFailures
	r.mu.Unlock()

	if state == StateFailed && prevState != StateFailed {
		log.Warn().
			Str("component", "connection_monitor").
			Str("credential_id", credentialID).
			Int("consecutive_failures", failures).
			Msg("credential connection failed")

		if err := r.auditor.Record(userID, credentialID, audit.ActionConnectionAlert, audit.SeverityHigh,
			nil, nil,
			map[string]interface{}{
				"state":                state,
				"consecutive_failures": failures,
				"response_time_ms":     responseMs,
			}); err != nil {
			log.Error().Err(err).
				Str("component", "connection_monitor").
				Msg("failed to record connection alert")
		}
	}
}

func (r *Registry) getStatus(userID, credentialID string) *HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.health[userID+":"+credentialID]
	if !ok {
		return nil
	}
	copied := *h
	return &copied
}
