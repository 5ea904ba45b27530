package vault

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tradevault/tradevault-api/pkg/middleware"
	"github.com/tradevault/tradevault-api/pkg/response"
)

// GinHandlers contains HTTP handlers for credential endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for credential endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListHandler handles GET requests for all of the caller's credentials.
// Responses never include secret material.
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		creds, err := h.service.List(userID)
		if err != nil {
			response.InternalError(c, "Failed to list credentials")
			return
		}

		response.Success(c, gin.H{
			"credentials": creds,
			"count":       len(creds),
		})
	}
}

// StoreHandler handles POST requests to store a new broker credential
func (h *GinHandlers) StoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req StoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Server, login and secret are required")
			return
		}

		cred, err := h.service.Store(userID, req)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				response.BadRequest(c, err.Error())
				return
			}
			response.InternalError(c, "Failed to store credential")
			return
		}

		response.Success(c, cred)
	}
}

// GetHandler handles GET requests for a single credential
func (h *GinHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		cred, err := h.service.GetSafe(userID, c.Param("id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				response.NotFound(c, "Credential not found")
				return
			}
			response.InternalError(c, "Failed to load credential")
			return
		}

		response.Success(c, cred)
	}
}

// UpdateHandler handles PUT requests to update a credential's name or secret
func (h *GinHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		cred, err := h.service.Update(userID, c.Param("id"), req)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				response.NotFound(c, "Credential not found")
			case errors.Is(err, ErrInvalidInput):
				response.BadRequest(c, err.Error())
			default:
				response.InternalError(c, "Failed to update credential")
			}
			return
		}

		response.Success(c, cred)
	}
}

// DeleteHandler handles DELETE requests for a credential
func (h *GinHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		if err := h.service.Delete(userID, c.Param("id")); err != nil {
			if errors.Is(err, ErrNotFound) {
				response.NotFound(c, "Credential not found")
				return
			}
			response.InternalError(c, "Failed to delete credential")
			return
		}

		response.Success(c, gin.H{"deleted": true})
	}
}
