package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the aggregated holding of one symbol in one account.
// It is derived from trade history and deleted when quantity reaches zero.
type Position struct {
	PositionID     string          `json:"positionID"`
	AccountID      string          `json:"accountID"`
	OwnerID        string          `json:"ownerID"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	AverageCost    decimal.Decimal `json:"averageCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// Revalue recomputes the valuation fields at the given price.
// Quantity and cost basis are left untouched.
func (p *Position) Revalue(price decimal.Decimal, at time.Time) {
	p.CurrentPrice = price
	p.TotalValue = p.Quantity.Mul(price)
	p.UnrealizedGain = p.TotalValue.Sub(p.Quantity.Mul(p.AverageCost))
	p.LastUpdated = at
}

// IsStale reports whether the valuation is older than maxAge at now.
func (p *Position) IsStale(now time.Time, maxAge time.Duration) bool {
	return p.LastUpdated.Before(now.Add(-maxAge))
}

// PositionKey identifies a position.
type PositionKey struct {
	AccountID string
	Symbol    string
}

// Key returns the (account, symbol) key of the position.
func (p *Position) Key() PositionKey {
	return PositionKey{AccountID: p.AccountID, Symbol: p.Symbol}
}
