package mapping

import (
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/models"
)

// ToModelTrade converts a domain Trade to a model Trade
func ToModelTrade(d domain.Trade) models.Trade {
	return models.Trade{
		TradeID:     d.TradeID,
		AccountID:   d.AccountID,
		OwnerID:     d.OwnerID,
		Symbol:      d.Symbol,
		Side:        string(d.Side),
		Quantity:    d.Quantity,
		Price:       d.Price,
		Fees:        d.Fees,
		TotalAmount: d.TotalAmount,
		TradeDate:   d.Date,
		CreatedAt:   d.CreatedAt,
	}
}

// ToDomainTrade converts a model Trade to a domain Trade
func ToDomainTrade(m models.Trade) domain.Trade {
	return domain.Trade{
		TradeID:     m.TradeID,
		AccountID:   m.AccountID,
		OwnerID:     m.OwnerID,
		Symbol:      m.Symbol,
		Side:        domain.TradeSide(m.Side),
		Quantity:    m.Quantity,
		Price:       m.Price,
		Fees:        m.Fees,
		TotalAmount: m.TotalAmount,
		Date:        m.TradeDate,
		CreatedAt:   m.CreatedAt,
	}
}

// ToModelPosition converts a domain Position to a model Position
func ToModelPosition(d domain.Position) models.Position {
	return models.Position{
		PositionID:     d.PositionID,
		AccountID:      d.AccountID,
		OwnerID:        d.OwnerID,
		Symbol:         d.Symbol,
		Quantity:       d.Quantity,
		AverageCost:    d.AverageCost,
		TotalCost:      d.TotalCost,
		CurrentPrice:   d.CurrentPrice,
		TotalValue:     d.TotalValue,
		UnrealizedGain: d.UnrealizedGain,
		LastUpdated:    d.LastUpdated,
	}
}

// ToDomainPosition converts a model Position to a domain Position
func ToDomainPosition(m models.Position) domain.Position {
	return domain.Position{
		PositionID:     m.PositionID,
		AccountID:      m.AccountID,
		OwnerID:        m.OwnerID,
		Symbol:         m.Symbol,
		Quantity:       m.Quantity,
		AverageCost:    m.AverageCost,
		TotalCost:      m.TotalCost,
		CurrentPrice:   m.CurrentPrice,
		TotalValue:     m.TotalValue,
		UnrealizedGain: m.UnrealizedGain,
		LastUpdated:    m.LastUpdated,
	}
}
