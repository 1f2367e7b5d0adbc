package services

import (
	"context"

	"github.com/SscSPs/finledger/internal/core/domain"
)

// PriceOracle returns a current quote for a ticker symbol.
// Implementations return apperrors.ErrPriceUnavailable when they have no price.
type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (domain.Quote, error)
}

// AggregatorClient fetches transactions for a linked account from the bank aggregator.
type AggregatorClient interface {
	ListTransactions(ctx context.Context, account domain.Account, dateRange domain.DateRange) ([]domain.ExternalRecord, error)
}
