package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Recorder writes append-only audit entries. There is deliberately no update
// or delete path.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates an audit recorder backed by the given database
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one audit entry. Old/new values and metadata are marshalled
// to JSON; a marshalling failure drops the field, never the entry.
func (r *Recorder) Record(userID, credentialID, action, severity string, oldValues, newValues, metadata map[string]interface{}) error {
	entry := &Entry{
		EntryID:      uuid.New().String(),
		UserID:       userID,
		CredentialID: credentialID,
		Action:       action,
		Severity:     severity,
		OldValues:    marshal(oldValues),
		NewValues:    marshal(newValues),
		Metadata:     marshal(metadata),
		CreatedAt:    time.Now(),
	}

	if err := r.db.Create(entry).Error; err != nil {
		log.Error().Err(err).
			Str("component", "audit").
			Str("action", action).
			Msg("failed to write audit entry")
		return err
	}
	return nil
}

// ListByUser returns a user's audit trail, newest first
func (r *Recorder) ListByUser(userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CountByCredential returns the number of entries recorded for a credential
func (r *Recorder) CountByCredential(credentialID string) (int64, error) {
	var count int64
	err := r.db.Model(&Entry{}).Where("credential_id = ?", credentialID).Count(&count).Error
	return count, err
}

func marshal(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
