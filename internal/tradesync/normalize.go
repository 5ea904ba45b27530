package tradesync

import (
	"strings"
	"time"

	"github.com/tradevault/tradevault-api/internal/broker"
)

// sideAliases maps the side/type enumerations seen across broker bridges
// onto the two canonical values
var sideAliases = map[string]string{
	"0":         "BUY",
	"buy":       "BUY",
	"deal_buy":  "BUY",
	"1":         "SELL",
	"sell":      "SELL",
	"deal_sell": "SELL",
}

// normalizeSide maps a broker-specific side value to BUY/SELL, passing
// unknown values through uppercased rather than failing the batch
func normalizeSide(side string) string {
	if canonical, ok := sideAliases[strings.ToLower(strings.TrimSpace(side))]; ok {
		return canonical
	}
	return strings.ToUpper(strings.TrimSpace(side))
}

// Normalize maps one raw broker deal into the canonical stored shape. This
// is the single tolerant mapping point for the sync path: absent numerics
// are already zero from the wire decode, absent timestamps become nulls.
func Normalize(userID, accountID string, d broker.Deal) Trade {
	return Trade{
		AccountID:  accountID,
		DealID:     d.DealID,
		UserID:     userID,
		OrderID:    d.OrderID,
		PositionID: d.PositionID,
		Symbol:     d.Symbol,
		Side:       normalizeSide(d.Side),
		Volume:     d.Volume,
		Price:      d.Price,
		Commission: d.Commission,
		Swap:       d.Swap,
		Profit:     d.Profit,
		Comment:    d.Comment,
		OpenedAt:   timeOrNil(d.OpenedAt),
		ClosedAt:   timeOrNil(d.ClosedAt),
	}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
