package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a market price observation for a symbol.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Source      string          `json:"source"`
}
