package accounts

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

func (d *Database) CreateAccount(account *TradingAccount) error {
	return d.db.Create(account).Error
}

// GetAccount returns an account scoped to its owner, or nil if none exists
func (d *Database) GetAccount(userID, accountID string) (*TradingAccount, error) {
	var account TradingAccount
	err := d.db.Where("account_id = ? AND user_id = ?", accountID, userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (d *Database) ListAccounts(userID string) ([]TradingAccount, error) {
	var accounts []TradingAccount
	err := d.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&accounts).Error
	return accounts, err
}

func (d *Database) UpdateAccount(account *TradingAccount) error {
	return d.db.Save(account).Error
}
