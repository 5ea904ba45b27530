package accounts

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tradevault/tradevault-api/internal/vault"
	"github.com/tradevault/tradevault-api/pkg/middleware"
	"github.com/tradevault/tradevault-api/pkg/response"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("account not found")

// Service manages trading-account records and their broker credential links
type Service struct {
	db    *Database
	vault *vault.Service
}

// NewService creates an accounts service. The vault is consulted when
// linking so dead credentials can't be attached.
func NewService(gormDB *gorm.DB, vaultSvc *vault.Service) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		vault: vaultSvc,
	}
}

// Create registers a trading account for the user
func (s *Service) Create(userID string, req CreateRequest) (*TradingAccount, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Account " + req.Login
	}

	account := &TradingAccount{
		AccountID: uuid.New().String(),
		UserID:    userID,
		Login:     strings.TrimSpace(req.Login),
		Server:    strings.TrimSpace(req.Server),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.db.CreateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns an account scoped to its owner
func (s *Service) Get(userID, accountID string) (*TradingAccount, error) {
	account, err := s.db.GetAccount(userID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// List returns the user's accounts
func (s *Service) List(userID string) ([]TradingAccount, error) {
	return s.db.ListAccounts(userID)
}

// Link attaches a vault credential to the account, making it eligible for
// trade sync
func (s *Service) Link(userID, accountID, credentialID string) (*TradingAccount, error) {
	account, err := s.Get(userID, accountID)
	if err != nil {
		return nil, err
	}

	// The credential must exist, be active, and belong to the same user
	if _, err := s.vault.GetSafe(userID, credentialID); err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return nil, vault.ErrNotFound
		}
		return nil, err
	}

	account.CredentialID = credentialID
	account.UpdatedAt = time.Now()
	if err := s.db.UpdateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// MarkSynced stamps the account's last successful sync time
func (s *Service) MarkSynced(tx *gorm.DB, account *TradingAccount, at time.Time) error {
	account.LastSyncAt = at
	account.UpdatedAt = at
	return tx.Save(account).Error
}

// GinHandlers contains HTTP handlers for account endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for account endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListHandler handles GET requests for the caller's accounts
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		accounts, err := h.service.List(userID)
		if err != nil {
			response.InternalError(c, "Failed to list accounts")
			return
		}
		response.Success(c, gin.H{"accounts": accounts, "count": len(accounts)})
	}
}

// CreateHandler handles POST requests to register an account
func (h *GinHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "login and server are required")
			return
		}

		account, err := h.service.Create(userID, req)
		if err != nil {
			response.InternalError(c, "Failed to create account")
			return
		}
		response.Success(c, account)
	}
}

// LinkHandler handles POST requests to attach a credential to an account
func (h *GinHandlers) LinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			response.Unauthorized(c, "Missing authenticated user")
			return
		}

		var req LinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "credentialId is required")
			return
		}

		account, err := h.service.Link(userID, c.Param("id"), req.CredentialID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				response.NotFound(c, "Account not found")
			case errors.Is(err, vault.ErrNotFound):
				response.NotFound(c, "Credential not found")
			default:
				response.InternalError(c, "Failed to link account")
			}
			return
		}
		response.Success(c, account)
	}
}
