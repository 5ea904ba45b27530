package database

import (
	"github.com/tradevault/tradevault-api/internal/accounts"
	"github.com/tradevault/tradevault-api/internal/audit"
	"github.com/tradevault/tradevault-api/internal/tradesync"
	"github.com/tradevault/tradevault-api/internal/vault"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&vault.Credential{},
		&audit.Entry{},
		&accounts.TradingAccount{},
		&tradesync.Trade{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
