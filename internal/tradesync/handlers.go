package tradesync

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tradevault/tradevault-api/internal/accounts"
	"github.com/tradevault/tradevault-api/internal/broker"
	"github.com/tradevault/tradevault-api/internal/vault"
	"github.com/tradevault/tradevault-api/pkg/middleware"
	"github.com/tradevault/tradevault-api/pkg/response"
)

// GinHandlers contains HTTP handlers for sync and trade endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for sync endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SyncHandler handles POST requests to run a windowed trade sync
func (h *GinHandlers) SyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "accountId is required")
			return
		}

		result, err := h.service.Sync(c.Request.Context(), userID, req.AccountID, req.From, req.To)
		if err != nil {
			switch {
			case errors.Is(err, accounts.ErrNotFound):
				response.NotFound(c, "Account not found")
			case errors.Is(err, ErrAccountNotConnected):
				response.AccountNotConnected(c, "Account has no linked broker credential")
			case errors.Is(err, ErrSyncInProgress):
				response.SyncInProgress(c, "A sync is already running for this account")
			case errors.Is(err, ErrInvalidWindow):
				response.BadRequest(c, err.Error())
			case errors.Is(err, vault.ErrNotFound):
				response.NotFound(c, "Linked credential not found")
			case errors.Is(err, vault.ErrDecryptionFailure):
				response.DecryptionFailure(c, "Stored credential could not be decrypted")
			case errors.Is(err, broker.ErrUnavailable):
				response.BrokerUnavailable(c, "Broker is unreachable, try again later")
			default:
				response.InternalError(c, "Sync failed")
			}
			return
		}

		response.Success(c, result)
	}
}

// ImportHandler handles POST requests for the best-effort bulk import path
func (h *GinHandlers) ImportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "accountId and deals are required")
			return
		}

		deals := make([]broker.Deal, 0, len(req.Deals))
		for _, raw := range req.Deals {
			var d broker.Deal
			if err := json.Unmarshal(raw, &d); err != nil {
				continue // tolerant path: malformed rows count as failed below
			}
			deals = append(deals, d)
		}

		result, err := h.service.ImportDeals(userID, req.AccountID, deals)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				response.NotFound(c, "Account not found")
				return
			}
			response.InternalError(c, "Import failed")
			return
		}
		result.Failed += len(req.Deals) - len(deals)

		response.Success(c, result)
	}
}

// ListTradesHandler handles GET requests for an account's stored trades
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		accountID := c.Query("accountId")
		if accountID == "" {
			response.BadRequest(c, "accountId query parameter is required")
			return
		}

		trades, err := h.service.ListTrades(userID, accountID)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				response.NotFound(c, "Account not found")
				return
			}
			response.InternalError(c, "Failed to list trades")
			return
		}

		response.Success(c, gin.H{"trades": trades, "count": len(trades)})
	}
}
