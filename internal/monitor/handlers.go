package monitor

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tradevault/tradevault-api/pkg/middleware"
	"github.com/tradevault/tradevault-api/pkg/response"
)

// GinHandlers contains HTTP handlers for monitoring endpoints
type GinHandlers struct {
	registry *Registry
}

// NewGinHandlers creates a new set of HTTP handlers for monitoring endpoints
func NewGinHandlers(registry *Registry) *GinHandlers {
	return &GinHandlers{
		registry: registry,
	}
}

// ControlRequest is the body for POST /monitoring
type ControlRequest struct {
	Action       string `json:"action" binding:"required"`
	CredentialID string `json:"credentialId"`
	Config       *struct {
		CheckIntervalMs        int `json:"checkInterval"`
		TimeoutMs              int `json:"timeout"`
		MaxConsecutiveFailures int `json:"maxConsecutiveFailures"`
	} `json:"config"`
}

type snapshot struct {
	IsActive    bool           `json:"is_active"`
	Stats       Stats          `json:"stats"`
	Credentials []HealthStatus `json:"credentials"`
}

// StatusHandler handles GET requests for the monitoring snapshot
func (h *GinHandlers) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		response.Success(c, h.snapshot(userID))
	}
}

// ControlHandler handles POST requests to start, stop or probe monitoring
func (h *GinHandlers) ControlHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req ControlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "action is required")
			return
		}

		switch req.Action {
		case "start":
			h.registry.StartMonitoring(userID, h.configFrom(req))
			response.Success(c, gin.H{"message": "Connection monitoring started"})

		case "stop":
			h.registry.StopMonitoring(userID)
			response.Success(c, gin.H{"message": "Connection monitoring stopped"})

		case "force_check":
			if req.CredentialID == "" {
				response.BadRequest(c, "credentialId is required for force_check")
				return
			}
			health := h.registry.ForceHealthCheck(c.Request.Context(), userID, req.CredentialID)
			if health == nil {
				response.NotFound(c, "Credential not found or not being monitored")
				return
			}
			response.Success(c, health)

		case "get_status":
			response.Success(c, h.snapshot(userID))

		default:
			response.BadRequest(c, "Invalid action. Must be: start, stop, force_check, or get_status")
		}
	}
}

func (h *GinHandlers) snapshot(userID string) snapshot {
	return snapshot{
		IsActive:    h.registry.IsMonitoring(userID),
		Stats:       h.registry.GetMonitoringStats(userID),
		Credentials: h.registry.GetAllHealthStatuses(userID),
	}
}

func (h *GinHandlers) configFrom(req ControlRequest) Config {
	var cfg Config
	if req.Config == nil {
		return cfg
	}
	cfg.CheckInterval = time.Duration(req.Config.CheckIntervalMs) * time.Millisecond
	cfg.Timeout = time.Duration(req.Config.TimeoutMs) * time.Millisecond
	cfg.MaxConsecutiveFailures = req.Config.MaxConsecutiveFailures
	return cfg
}
