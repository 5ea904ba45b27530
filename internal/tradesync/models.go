package tradesync

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Trade is one normalized, locally stored deal. The composite unique index
// on (account_id, deal_id) is the correctness guarantee of the merge step:
// re-importing the same deal updates the row, never duplicates it.
type Trade struct {
	gorm.Model `json:"-"`
	AccountID  string     `gorm:"uniqueIndex:idx_account_deal" json:"account_id"`
	DealID     string     `gorm:"uniqueIndex:idx_account_deal" json:"deal_id"`
	UserID     string     `gorm:"index" json:"user_id"`
	OrderID    string     `json:"order_id,omitempty"`
	PositionID string     `json:"position_id,omitempty"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"` // BUY or SELL
	Volume     float64    `json:"volume"`
	Price      float64    `json:"price"`
	Commission float64    `json:"commission"`
	Swap       float64    `json:"swap"`
	Profit     float64    `json:"profit"`
	Comment    string     `json:"comment,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SyncResult reports one sync call. Imported counts deals observed in the
// fetched window, updates included, not just new rows.
type SyncResult struct {
	Imported int `json:"imported"`
}

// ImportResult reports the best-effort bulk import path, which applies rows
// independently
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// SyncRequest is the body for POST /sync
type SyncRequest struct {
	AccountID string     `json:"accountId" binding:"required"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
}

// ImportRequest is the body for POST /trades/import
type ImportRequest struct {
	AccountID string            `json:"accountId" binding:"required"`
	Deals     []json.RawMessage `json:"deals" binding:"required"`
}
