package tradesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tradevault/tradevault-api/internal/accounts"
	"github.com/tradevault/tradevault-api/internal/broker"
	"github.com/tradevault/tradevault-api/internal/vault"
	"gorm.io/gorm"
)

var (
	ErrAccountNotConnected = errors.New("account has no linked broker credential")
	ErrSyncInProgress      = errors.New("a sync is already running for this account")
	ErrInvalidWindow       = errors.New("sync window start must precede its end")
)

const (
	// defaultWindow bounds the time range when the caller doesn't give one
	defaultWindow = 90 * 24 * time.Hour

	// maxWindow caps any requested range so a sync can't issue unbounded
	// broker queries
	maxWindow = 365 * 24 * time.Hour
)

// Service pulls windowed deal history from the broker and merges it into
// local storage exactly once per deal, no matter how often syncs run or
// overlap in range.
type Service struct {
	db       *Database
	vault    *vault.Service
	accounts *accounts.Service
	client   broker.Client

	mu     sync.Mutex
	active map[string]bool // accountID -> sync in flight
}

// NewService creates a trade sync engine
func NewService(gormDB *gorm.DB, vaultSvc *vault.Service, accountsSvc *accounts.Service, client broker.Client) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		vault:    vaultSvc,
		accounts: accountsSvc,
		client:   client,
		active:   make(map[string]bool),
	}
}

// Sync fetches the account's executed deals for [from, to] and applies them
// atomically. A second concurrent call for the same account is rejected with
// ErrSyncInProgress rather than raced; different accounts sync freely in
// parallel.
func (s *Service) Sync(ctx context.Context, userID, accountID string, from, to *time.Time) (*SyncResult, error) {
	logger := log.With().
		Str("component", "trade_sync").
		Str("account_id", accountID).
		Logger()

	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsConnected() {
		return nil, ErrAccountNotConnected
	}

	if !s.acquire(accountID) {
		return nil, ErrSyncInProgress
	}
	defer s.release(accountID)

	fromTime, toTime, err := resolveWindow(from, to)
	if err != nil {
		return nil, err
	}

	plain, err := s.vault.Get(userID, account.CredentialID)
	if err != nil {
		return nil, err
	}

	deals, err := s.client.GetDeals(ctx, broker.Credentials{
		Server: plain.Server,
		Login:  plain.Login,
		Secret: plain.Secret,
	}, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("deal fetch failed: %w", err)
	}

	trades := make([]Trade, 0, len(deals))
	for _, d := range deals {
		if d.DealID == "" {
			logger.Warn().Str("symbol", d.Symbol).Msg("skipping deal without identifier")
			continue
		}
		trades = append(trades, Normalize(userID, accountID, d))
	}

	now := time.Now()
	err = s.db.ApplyBatch(trades, func(tx *gorm.DB) error {
		return s.accounts.MarkSynced(tx, account, now)
	})
	if err != nil {
		logger.Error().Err(err).Int("batch_size", len(trades)).Msg("sync batch rolled back")
		return nil, fmt.Errorf("failed to apply deal batch: %w", err)
	}

	logger.Info().
		Int("imported", len(trades)).
		Time("from", fromTime).
		Time("to", toTime).
		Msg("sync completed")

	return &SyncResult{Imported: len(trades)}, nil
}

// ImportDeals is the best-effort bulk path: rows apply independently and the
// result reports a partial count. Kept separate from Sync, which is
// whole-batch atomic; the two contracts are never blended.
func (s *Service) ImportDeals(userID, accountID string, deals []broker.Deal) (*ImportResult, error) {
	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, d := range deals {
		if d.DealID == "" {
			result.Failed++
			continue
		}
		trade := Normalize(userID, account.AccountID, d)
		if err := s.db.UpsertOne(&trade); err != nil {
			log.Warn().Err(err).
				Str("component", "trade_sync").
				Str("deal_id", d.DealID).
				Msg("failed to import deal")
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ListTrades returns the stored trades for one account
func (s *Service) ListTrades(userID, accountID string) ([]Trade, error) {
	if _, err := s.accounts.Get(userID, accountID); err != nil {
		return nil, err
	}
	return s.db.ListByAccount(userID, accountID)
}

func (s *Service) acquire(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[accountID] {
		return false
	}
	s.active[accountID] = true
	return true
}

func (s *Service) release(accountID string) {
	s.mu.Lock()
	delete(s.active, accountID)
	s.mu.Unlock()
}

// resolveWindow fills in defaults and caps the requested range
func resolveWindow(from, to *time.Time) (time.Time, time.Time, error) {
	toTime := time.Now()
	if to != nil {
		toTime = *to
	}

	fromTime := toTime.Add(-defaultWindow)
	if from != nil {
		fromTime = *from
	}

	if fromTime.After(toTime) {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}
	if toTime.Sub(fromTime) > maxWindow {
		fromTime = toTime.Add(-maxWindow)
	}
	return fromTime, toTime, nil
}
