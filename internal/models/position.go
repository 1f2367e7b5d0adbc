package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the row stored in the trades table. Rows are never updated.
type Trade struct {
	TradeID     string          `db:"trade_id"`
	AccountID   string          `db:"account_id"`
	OwnerID     string          `db:"owner_id"`
	Symbol      string          `db:"symbol"`
	Side        string          `db:"side"`
	Quantity    decimal.Decimal `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	Fees        decimal.Decimal `db:"fees"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	TradeDate   time.Time       `db:"trade_date"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Position is the row stored in the positions table, unique per (account_id, symbol).
type Position struct {
	PositionID     string          `db:"position_id"`
	AccountID      string          `db:"account_id"`
	OwnerID        string          `db:"owner_id"`
	Symbol         string          `db:"symbol"`
	Quantity       decimal.Decimal `db:"quantity"`
	AverageCost    decimal.Decimal `db:"average_cost"`
	TotalCost      decimal.Decimal `db:"total_cost"`
	CurrentPrice   decimal.Decimal `db:"current_price"`
	TotalValue     decimal.Decimal `db:"total_value"`
	UnrealizedGain decimal.Decimal `db:"unrealized_gain"`
	LastUpdated    time.Time       `db:"last_updated"`
}
