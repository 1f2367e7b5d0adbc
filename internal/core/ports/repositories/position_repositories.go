package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PositionMutation computes the new state of a position while the account lock is held.
// existing is nil when no position is open. history holds every trade for the
// key including the one being recorded. Returning a nil position deletes the
// row; returning an error rolls the whole unit back, including the trade insert.
type PositionMutation func(existing *domain.Position, history []domain.Trade) (*domain.Position, error)

// PositionReader defines read operations for positions and trades
type PositionReader interface {
	// FindPosition returns the open position for (accountID, symbol), or apperrors.ErrNotFound.
	FindPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error)

	// ListPositionsByAccount returns the open positions of an account ordered by symbol.
	ListPositionsByAccount(ctx context.Context, accountID string) ([]domain.Position, error)

	// ListPositionsByOwner returns the open positions of every account of a user.
	ListPositionsByOwner(ctx context.Context, ownerID string) ([]domain.Position, error)

	// ListStalePositions returns positions whose valuation was last refreshed before cutoff.
	// An empty ownerID scans every owner.
	ListStalePositions(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Position, error)

	// ListTrades returns every trade recorded for (accountID, symbol).
	ListTrades(ctx context.Context, accountID, symbol string) ([]domain.Trade, error)
}

// PositionWriter defines write operations for positions and trades
type PositionWriter interface {
	// RecordTrade inserts trade and applies mutate to the position of its key in
	// one atomic unit under the account's write lock.
	RecordTrade(ctx context.Context, trade domain.Trade, mutate PositionMutation) (*domain.Position, error)

	// RevaluePosition sets the current price of an open position and recomputes
	// value, gain and last-updated from the quantity stored at write time.
	// Quantity and cost basis are never touched. Returns apperrors.ErrNotFound
	// when the position closed in the meantime.
	RevaluePosition(ctx context.Context, accountID, symbol string, price decimal.Decimal, at time.Time) error
}

// PositionRepositoryFacade combines all position-related repository interfaces
type PositionRepositoryFacade interface {
	PositionReader
	PositionWriter
}
