package audit

import (
	"time"

	"gorm.io/gorm"
)

// Credential lifecycle actions
const (
	ActionCredentialCreated         = "credential_created"
	ActionCredentialUpdated         = "credential_updated"
	ActionCredentialPasswordUpdated = "credential_password_updated"
	ActionCredentialDeleted         = "credential_deleted"
	ActionConnectionAlert           = "connection_alert"
)

// Severity levels
const (
	SeverityInfo   = "info"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Entry is one append-only audit record. Old/new values and metadata are
// JSON-encoded snapshots of non-secret fields; plaintext secrets never land
// here.
type Entry struct {
	gorm.Model   `json:"-"`
	EntryID      string    `gorm:"uniqueIndex" json:"entry_id"`
	UserID       string    `gorm:"index" json:"user_id"`
	CredentialID string    `json:"credential_id"`
	Action       string    `json:"action"`
	Severity     string    `json:"severity"`
	OldValues    string    `json:"old_values,omitempty"`
	NewValues    string    `json:"new_values,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
