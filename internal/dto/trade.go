package dto

import (
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordTradeRequest is a buy or sell of a symbol in an investment account.
// The side is taken from the route, not the body.
type RecordTradeRequest struct {
	AccountID string          `json:"accountID" binding:"required"`
	Symbol    string          `json:"symbol" binding:"required,max=16"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	Date      time.Time       `json:"date" binding:"required"`
}

// PositionResponse defines the data returned for an open position.
type PositionResponse struct {
	AccountID      string          `json:"accountID"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	AverageCost    decimal.Decimal `json:"averageCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// ToPositionResponse converts a domain.Position to PositionResponse DTO.
func ToPositionResponse(p *domain.Position) PositionResponse {
	return PositionResponse{
		AccountID:      p.AccountID,
		Symbol:         p.Symbol,
		Quantity:       p.Quantity,
		AverageCost:    p.AverageCost,
		TotalCost:      p.TotalCost,
		CurrentPrice:   p.CurrentPrice,
		TotalValue:     p.TotalValue,
		UnrealizedGain: p.UnrealizedGain,
		LastUpdated:    p.LastUpdated,
	}
}

// ToPositionResponses converts a slice of domain.Position to []PositionResponse.
func ToPositionResponses(positions []domain.Position) []PositionResponse {
	res := make([]PositionResponse, len(positions))
	for i, p := range positions {
		res[i] = ToPositionResponse(&p)
	}
	return res
}

// RecordTradeResponse is returned after a trade. Position is nil when the trade closed it.
type RecordTradeResponse struct {
	Position *PositionResponse `json:"position"`
	Closed   bool              `json:"closed"`
}

// ListPositionsResponse wraps the list of positions.
type ListPositionsResponse struct {
	Positions []PositionResponse `json:"positions"`
}

// RefreshPositionsResponse reports how many positions were revalued.
type RefreshPositionsResponse struct {
	Refreshed int `json:"refreshed"`
}
