package vault

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateCredential(cred *Credential) error {
	return d.db.Create(cred).Error
}

// GetCredential returns an active credential scoped to its owner, or nil if
// none exists
func (d *Database) GetCredential(userID, credentialID string) (*Credential, error) {
	var cred Credential
	err := d.db.Where("credential_id = ? AND user_id = ? AND is_active = ?", credentialID, userID, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// GetByServerLogin finds an active credential with the same server and login
// for dedupe on store
func (d *Database) GetByServerLogin(userID, server, login string) (*Credential, error) {
	var cred Credential
	err := d.db.Where("user_id = ? AND server = ? AND login = ? AND is_active = ?", userID, server, login, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (d *Database) ListCredentials(userID string) ([]Credential, error) {
	var creds []Credential
	err := d.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_used_at DESC").
		Find(&creds).Error
	return creds, err
}

func (d *Database) UpdateCredential(cred *Credential) error {
	return d.db.Save(cred).Error
}

// DeactivateCredential soft-deletes: the row is kept for the audit trail but
// excluded from every active-credential query
func (d *Database) DeactivateCredential(cred *Credential) error {
	cred.IsActive = false
	return d.db.Save(cred).Error
}
