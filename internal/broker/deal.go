package broker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Deal is one executed-trade record as reported by a broker bridge. Bridges
// disagree on field names and types, so decoding goes through one tolerant
// mapping: missing numeric fields default to zero, missing identifiers to
// the empty string, and the whole batch never errors over one absent field.
type Deal struct {
	DealID     string
	OrderID    string
	PositionID string
	Symbol     string
	Side       string
	Volume     float64
	Price      float64
	Commission float64
	Swap       float64
	Profit     float64
	Comment    string
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Field aliases observed across bridge implementations
var (
	dealIDKeys     = []string{"id", "deal_id", "dealId", "ticket"}
	orderIDKeys    = []string{"order_id", "orderId", "order"}
	positionIDKeys = []string{"position_id", "positionId", "position"}
	symbolKeys     = []string{"symbol"}
	sideKeys       = []string{"type", "side"}
	volumeKeys     = []string{"volume", "lots", "size"}
	priceKeys      = []string{"price", "close_price", "close"}
	commissionKeys = []string{"commission", "fee"}
	swapKeys       = []string{"swap"}
	profitKeys     = []string{"profit", "pnl"}
	commentKeys    = []string{"comment", "client_comment"}
	openedAtKeys   = []string{"open_time", "time_setup", "opened_at"}
	closedAtKeys   = []string{"time", "close_time", "time_done", "closed_at"}
)

// UnmarshalJSON decodes a raw bridge record through the alias table
func (d *Deal) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.DealID = firstString(raw, dealIDKeys)
	d.OrderID = firstString(raw, orderIDKeys)
	d.PositionID = firstString(raw, positionIDKeys)
	d.Symbol = firstString(raw, symbolKeys)
	d.Side = firstString(raw, sideKeys)
	d.Volume = firstNumber(raw, volumeKeys)
	d.Price = firstNumber(raw, priceKeys)
	d.Commission = firstNumber(raw, commissionKeys)
	d.Swap = firstNumber(raw, swapKeys)
	d.Profit = firstNumber(raw, profitKeys)
	d.Comment = firstString(raw, commentKeys)
	d.OpenedAt = firstTime(raw, openedAtKeys)
	d.ClosedAt = firstTime(raw, closedAtKeys)

	return nil
}

// firstString returns the first present key coerced to a string. Numeric
// identifiers (tickets) come through as JSON numbers and are formatted
// without an exponent.
func firstString(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatInt(int64(t), 10)
		}
	}
	return ""
}

func firstNumber(raw map[string]interface{}, keys []string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// firstTime accepts RFC3339 strings or unix-second numbers; anything else
// yields the zero time
func firstTime(raw map[string]interface{}, keys []string) time.Time {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, t); err == nil {
				return ts
			}
		case float64:
			if t > 0 {
				return time.Unix(int64(t), 0).UTC()
			}
		}
	}
	return time.Time{}
}

func (d Deal) String() string {
	return fmt.Sprintf("deal %s %s %s vol=%.2f profit=%.2f", d.DealID, d.Side, d.Symbol, d.Volume, d.Profit)
}
