package tradesync

import (
	"testing"
	"time"

	"github.com/tradevault/tradevault-api/internal/broker"
)

func TestNormalizeSide(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"buy", "BUY"},
		{"BUY", "BUY"},
		{"deal_buy", "BUY"},
		{"0", "BUY"},
		{"sell", "SELL"},
		{"Deal_Sell", "SELL"},
		{"1", "SELL"},
		{" buy ", "BUY"},
		{"balance", "BALANCE"}, // unknown passes through uppercased
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeSide(tt.in); got != tt.want {
				t.Errorf("normalizeSide(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	closed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	trade := Normalize("user-a", "acct-1", broker.Deal{
		DealID:     "d-1",
		OrderID:    "o-1",
		Symbol:     "EURUSD",
		Side:       "0",
		Volume:     0.5,
		Price:      1.0842,
		Commission: -0.7,
		Swap:       -0.1,
		Profit:     12.5,
		Comment:    "tp hit",
		ClosedAt:   closed,
	})

	if trade.UserID != "user-a" || trade.AccountID != "acct-1" {
		t.Errorf("ownership = %s/%s", trade.UserID, trade.AccountID)
	}
	if trade.Side != "BUY" {
		t.Errorf("side = %q, want BUY", trade.Side)
	}
	if trade.ClosedAt == nil || !trade.ClosedAt.Equal(closed) {
		t.Errorf("closed at = %v, want %v", trade.ClosedAt, closed)
	}
	if trade.OpenedAt != nil {
		t.Errorf("opened at = %v, want nil for zero time", trade.OpenedAt)
	}
	if trade.Price != 1.0842 || trade.Profit != 12.5 {
		t.Errorf("price/profit = %v/%v", trade.Price, trade.Profit)
	}
}
