package accounts

import (
	"time"

	"gorm.io/gorm"
)

// TradingAccount mirrors one brokerage account. An account is
// "broker-linked" once a vault credential is attached; trade sync refuses to
// run without the link.
type TradingAccount struct {
	gorm.Model   `json:"-"`
	AccountID    string    `gorm:"uniqueIndex" json:"account_id"`
	UserID       string    `gorm:"index" json:"user_id"`
	CredentialID string    `json:"credential_id,omitempty"`
	Login        string    `json:"login"`
	Server       string    `json:"server"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	Balance      float64   `json:"balance"`
	LastSyncAt   time.Time `json:"last_sync_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsConnected reports whether the account has a broker credential attached
func (a *TradingAccount) IsConnected() bool {
	return a.CredentialID != ""
}

// CreateRequest is the body for account creation
type CreateRequest struct {
	Login  string `json:"login" binding:"required"`
	Server string `json:"server" binding:"required"`
	Name   string `json:"name"`
}

// LinkRequest attaches a vault credential to an account
type LinkRequest struct {
	CredentialID string `json:"credentialId" binding:"required"`
}
