package vault

import (
	"time"

	"gorm.io/gorm"
)

// Credential is a stored broker login. The secret only exists at rest inside
// EncryptedSecret (a JSON-serialized EncryptedBlob); it leaves the vault in
// plaintext only transiently, in-process, to callers that proxy it to the
// broker client.
type Credential struct {
	gorm.Model       `json:"-"`
	CredentialID     string    `gorm:"uniqueIndex" json:"credential_id"`
	UserID           string    `gorm:"index" json:"user_id"`
	Name             string    `json:"name"`
	Server           string    `json:"server"`
	Login            string    `json:"login"`
	EncryptedSecret  string    `json:"-"`
	SecurityScore    int       `json:"-"`              // validation score at store time, input to level recomputation
	SecurityLevel    string    `json:"security_level"` // high, medium, low
	SecretUpdatedAt  time.Time `json:"-"`
	RotationRequired bool      `json:"rotation_required"`
	IsActive         bool      `json:"is_active"`
	LastUsedAt       time.Time `json:"last_used_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SafeCredential is the external view of a credential, with no secret
// material
type SafeCredential struct {
	CredentialID     string    `json:"credential_id"`
	Name             string    `json:"name"`
	Server           string    `json:"server"`
	Login            string    `json:"login"`
	SecurityLevel    string    `json:"security_level"`
	RotationRequired bool      `json:"rotation_required"`
	IsActive         bool      `json:"is_active"`
	LastUsedAt       time.Time `json:"last_used_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PlainCredential holds a decrypted broker login. In-memory only; never
// serialized back to a caller.
type PlainCredential struct {
	Server string
	Login  string
	Secret string
	Name   string
}

// StoreRequest is the body for credential creation
type StoreRequest struct {
	Server string `json:"server" binding:"required"`
	Login  string `json:"login" binding:"required"`
	Secret string `json:"secret" binding:"required"`
	Name   string `json:"name"`
}

// UpdateRequest is the body for credential updates; zero-value fields are
// left unchanged
type UpdateRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

func (c *Credential) safeView() SafeCredential {
	return SafeCredential{
		CredentialID:     c.CredentialID,
		Name:             c.Name,
		Server:           c.Server,
		Login:            c.Login,
		SecurityLevel:    c.SecurityLevel,
		RotationRequired: c.RotationRequired,
		IsActive:         c.IsActive,
		LastUsedAt:       c.LastUsedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
