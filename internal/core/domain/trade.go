package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is BUY or SELL.
type TradeSide string

const (
	Buy  TradeSide = "BUY"
	Sell TradeSide = "SELL"
)

// Trade is an immutable buy or sell of a symbol. Corrections are new offsetting trades.
type Trade struct {
	TradeID     string          `json:"tradeID"`
	AccountID   string          `json:"accountID"`
	OwnerID     string          `json:"ownerID"`
	Symbol      string          `json:"symbol"`
	Side        TradeSide       `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fees        decimal.Decimal `json:"fees"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ComputeTotal returns quantity*price + fees.
func (t *Trade) ComputeTotal() decimal.Decimal {
	return t.Quantity.Mul(t.Price).Add(t.Fees)
}
