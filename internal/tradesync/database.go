package tradesync

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// ApplyBatch merges a batch of normalized trades in a single transaction.
// Either every row applies or none do, so a caller retry never races a
// half-imported window. postApply runs inside the same transaction for
// bookkeeping that must commit with the batch.
func (d *Database) ApplyBatch(trades []Trade, postApply func(tx *gorm.DB) error) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for i := range trades {
		if err := upsertTrade(tx, &trades[i]); err != nil {
			tx.Rollback()
			return err
		}
	}

	if postApply != nil {
		if err := postApply(tx); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

// UpsertOne applies a single trade outside any batch transaction; used by
// the best-effort import path
func (d *Database) UpsertOne(trade *Trade) error {
	return upsertTrade(d.db, trade)
}

// upsertTrade inserts a new row for an unseen (account_id, deal_id) pair or
// updates only the mutable fields of an existing one
func upsertTrade(tx *gorm.DB, trade *Trade) error {
	var existing Trade
	err := tx.Where("account_id = ? AND deal_id = ?", trade.AccountID, trade.DealID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			trade.CreatedAt = time.Now()
			trade.UpdatedAt = trade.CreatedAt
			return tx.Create(trade).Error
		}
		return err
	}

	existing.Price = trade.Price
	existing.Profit = trade.Profit
	existing.Commission = trade.Commission
	existing.Swap = trade.Swap
	existing.Comment = trade.Comment
	existing.ClosedAt = trade.ClosedAt
	existing.UpdatedAt = time.Now()
	return tx.Save(&existing).Error
}

// ListByAccount returns stored trades for one account, newest close first
func (d *Database) ListByAccount(userID, accountID string) ([]Trade, error) {
	var trades []Trade
	err := d.db.Where("user_id = ? AND account_id = ?", userID, accountID).
		Order("closed_at DESC").
		Find(&trades).Error
	return trades, err
}

// CountByAccount returns the number of stored trades for one account
func (d *Database) CountByAccount(accountID string) (int64, error) {
	var count int64
	err := d.db.Model(&Trade{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
