package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tradevault/tradevault-api/internal/audit"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("credential not found")
	ErrInvalidInput = errors.New("server, login and secret are required")
)

// Service is the sole owner of secret material at rest. Every other
// component obtains decrypted broker logins through it and nothing else.
type Service struct {
	db        *Database
	auditor   *audit.Recorder
	masterKey []byte
	policy    Policy
}

// NewService creates a credential vault bound to a master key. Per-user
// encryption keys are derived from the master key on demand.
func NewService(gormDB *gorm.DB, auditor *audit.Recorder, masterKey []byte, policy Policy) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		auditor:   auditor,
		masterKey: masterKey,
		policy:    policy,
	}
}

// Store validates, encrypts and persists a broker credential. Storing the
// same server/login pair again updates the existing record instead of
// creating a sibling. Emits a credential_created audit entry.
func (s *Service) Store(userID string, req StoreRequest) (*SafeCredential, error) {
	server := strings.TrimSpace(req.Server)
	login := strings.TrimSpace(req.Login)

	score, ok := validateCredential(server, login, req.Secret)
	if !ok {
		return nil, ErrInvalidInput
	}

	userKey, err := DeriveUserKey(s.masterKey, userID)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}

	blob, err := Encrypt(req.Secret, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}
	encoded, err := json.Marshal(blob)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Broker " + login
	}

	now := time.Now()

	// Same server/login replaces the stored secret rather than stacking a
	// duplicate record
	existing, err := s.db.GetByServerLogin(userID, server, login)
	if err != nil {
		return nil, err
	}

	cred := existing
	if cred == nil {
		cred = &Credential{
			CredentialID: uuid.New().String(),
			UserID:       userID,
			CreatedAt:    now,
		}
	}

	cred.Name = name
	cred.Server = server
	cred.Login = login
	cred.EncryptedSecret = string(encoded)
	cred.SecurityScore = score
	cred.SecurityLevel = s.policy.securityLevel(score, 0)
	cred.SecretUpdatedAt = now
	cred.RotationRequired = false
	cred.IsActive = true
	cred.LastUsedAt = now
	cred.UpdatedAt = now

	if existing == nil {
		err = s.db.CreateCredential(cred)
	} else {
		err = s.db.UpdateCredential(cred)
	}
	if err != nil {
		return nil, err
	}

	if err := s.auditor.Record(userID, cred.CredentialID, audit.ActionCredentialCreated, audit.SeverityInfo,
		nil, nil,
		map[string]interface{}{
			"server":         cred.Server,
			"login":          cred.Login,
			"security_level": cred.SecurityLevel,
		}); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "vault").
		Str("credential_id", cred.CredentialID).
		Str("user_id", userID).
		Str("security_level", cred.SecurityLevel).
		Msg("credential stored")

	view := cred.safeView()
	return &view, nil
}

// Update applies a partial update. The secret is re-encrypted only when a
// new one is supplied; a password change is audited at high severity, a
// metadata change at medium.
func (s *Service) Update(userID, credentialID string, req UpdateRequest) (*SafeCredential, error) {
	cred, err := s.db.GetCredential(userID, credentialID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	oldName := cred.Name
	now := time.Now()
	passwordChanged := req.Secret != ""

	if req.Name != "" {
		cred.Name = strings.TrimSpace(req.Name)
	}

	if passwordChanged {
		score, ok := validateCredential(cred.Server, cred.Login, req.Secret)
		if !ok {
			return nil, ErrInvalidInput
		}

		userKey, err := DeriveUserKey(s.masterKey, userID)
		if err != nil {
			return nil, fmt.Errorf("key derivation failed: %w", err)
		}
		blob, err := Encrypt(req.Secret, userKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt secret: %w", err)
		}
		encoded, err := json.Marshal(blob)
		if err != nil {
			return nil, err
		}

		cred.EncryptedSecret = string(encoded)
		cred.SecurityScore = score
		cred.SecretUpdatedAt = now
		cred.RotationRequired = false
	}

	cred.SecurityLevel = s.policy.securityLevel(cred.SecurityScore, now.Sub(cred.SecretUpdatedAt))
	cred.UpdatedAt = now

	if err := s.db.UpdateCredential(cred); err != nil {
		return nil, err
	}

	action := audit.ActionCredentialUpdated
	severity := audit.SeverityMedium
	if passwordChanged {
		action = audit.ActionCredentialPasswordUpdated
		severity = audit.SeverityHigh
	}

	if err := s.auditor.Record(userID, cred.CredentialID, action, severity,
		map[string]interface{}{"name": oldName},
		map[string]interface{}{"name": cred.Name},
		map[string]interface{}{"password_changed": passwordChanged}); err != nil {
		return nil, err
	}

	view := cred.safeView()
	return &view, nil
}

// Get returns the decrypted credential for in-process use by the monitor and
// the sync engine. Decryption failure is logged at high severity with the
// secret redacted and never substitutes an empty secret.
func (s *Service) Get(userID, credentialID string) (*PlainCredential, error) {
	cred, err := s.db.GetCredential(userID, credentialID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	userKey, err := DeriveUserKey(s.masterKey, userID)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}

	var blob EncryptedBlob
	if err := json.Unmarshal([]byte(cred.EncryptedSecret), &blob); err != nil {
		return nil, ErrMalformedBlob
	}

	secret, err := Decrypt(&blob, userKey)
	if err != nil {
		log.Error().
			Str("component", "vault").
			Str("credential_id", credentialID).
			Str("user_id", userID).
			Msg("stored ciphertext failed authentication")
		return nil, err
	}

	cred.LastUsedAt = time.Now()
	if err := s.db.UpdateCredential(cred); err != nil {
		log.Warn().Err(err).
			Str("component", "vault").
			Str("credential_id", credentialID).
			Msg("failed to bump last_used_at")
	}

	return &PlainCredential{
		Server: cred.Server,
		Login:  cred.Login,
		Secret: secret,
		Name:   cred.Name,
	}, nil
}

// GetSafe returns the non-secret view of one credential, with security level
// and rotation flag recomputed for the secret's current age
func (s *Service) GetSafe(userID, credentialID string) (*SafeCredential, error) {
	cred, err := s.db.GetCredential(userID, credentialID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	s.refreshPolicyFields(cred)
	view := cred.safeView()
	return &view, nil
}

// List returns safe views of all of a user's active credentials
func (s *Service) List(userID string) ([]SafeCredential, error) {
	creds, err := s.db.ListCredentials(userID)
	if err != nil {
		return nil, err
	}

	views := make([]SafeCredential, 0, len(creds))
	for i := range creds {
		s.refreshPolicyFields(&creds[i])
		views = append(views, creds[i].safeView())
	}
	return views, nil
}

// Delete soft-deletes a credential and audits a snapshot of its non-secret
// identifying fields
func (s *Service) Delete(userID, credentialID string) error {
	cred, err := s.db.GetCredential(userID, credentialID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotFound
	}

	if err := s.db.DeactivateCredential(cred); err != nil {
		return err
	}

	if err := s.auditor.Record(userID, credentialID, audit.ActionCredentialDeleted, audit.SeverityHigh,
		map[string]interface{}{
			"server": cred.Server,
			"login":  cred.Login,
			"name":   cred.Name,
		},
		nil,
		map[string]interface{}{"deleted_at": time.Now().Format(time.RFC3339)}); err != nil {
		return err
	}

	log.Info().
		Str("component", "vault").
		Str("credential_id", credentialID).
		Str("user_id", userID).
		Msg("credential deleted")

	return nil
}

// MarkForRotation flags a credential so the user is prompted to re-enter the
// secret
func (s *Service) MarkForRotation(userID, credentialID string) error {
	cred, err := s.db.GetCredential(userID, credentialID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotFound
	}

	cred.RotationRequired = true
	cred.UpdatedAt = time.Now()
	return s.db.UpdateCredential(cred)
}

// refreshPolicyFields recomputes the age-dependent fields. Persisted
// opportunistically when the values drift from what is stored.
func (s *Service) refreshPolicyFields(cred *Credential) {
	age := time.Since(cred.SecretUpdatedAt)
	level := s.policy.securityLevel(cred.SecurityScore, age)
	rotation := cred.RotationRequired || s.policy.rotationRequired(age)

	if level != cred.SecurityLevel || rotation != cred.RotationRequired {
		cred.SecurityLevel = level
		cred.RotationRequired = rotation
		if err := s.db.UpdateCredential(cred); err != nil {
			log.Warn().Err(err).
				Str("component", "vault").
				Str("credential_id", cred.CredentialID).
				Msg("failed to persist recomputed security level")
		}
	}
}
