package services

import (
	"context"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/dto"
)

// TransactionSvcFacade keeps account balances consistent with posted transactions.
type TransactionSvcFacade interface {
	// ApplyDelta persists txn and adds its signed effect to the account balance
	// as one atomic unit. Non-manual sources are also checked against the
	// fingerprint guard; a collision returns apperrors.ErrDuplicate.
	ApplyDelta(ctx context.Context, userID string, txn domain.Transaction) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
	// SettleTransaction moves a pending transaction to posted. It is the only mutation allowed on an existing transaction.
	SettleTransaction(ctx context.Context, userID string, txn domain.Transaction) error
}

// PositionSvcFacade maintains investment positions as trades arrive.
type PositionSvcFacade interface {
	RecordBuy(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error)
	// RecordSell returns a nil position when the sell closes it.
	RecordSell(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error)
	// RefreshStalePositions revalues every position older than maxAge and returns how many were updated.
	RefreshStalePositions(ctx context.Context, maxAge time.Duration) (int, error)
	RefreshStalePositionsForUser(ctx context.Context, userID string, maxAge time.Duration) (int, error)
	// ListPositions returns the user's positions; an empty accountID lists all accounts.
	ListPositions(ctx context.Context, userID, accountID string) ([]domain.Position, error)
}

// ImportSvc turns aggregator records into ledger transactions idempotently.
type ImportSvc interface {
	ImportBatch(ctx context.Context, userID, accountID string, records []domain.ExternalRecord) (*domain.ImportResult, error)
}

// SyncSvcFacade pulls transactions for linked accounts from the aggregator.
type SyncSvcFacade interface {
	// SyncAccount returns the partial result together with the error when the
	// import is interrupted after committing some records.
	SyncAccount(ctx context.Context, userID, accountID string, dateRange domain.DateRange) (*domain.ImportResult, error)
	// SyncAll syncs every active linked account of the user. Per-account
	// failures are reported in the results, never returned as the error.
	SyncAll(ctx context.Context, userID string, dateRange domain.DateRange) ([]domain.AccountSyncResult, error)
	// SyncAllOwners runs SyncAll with the default lookback for every owner with
	// linked accounts. A failing owner does not stop the others; their errors are joined.
	SyncAllOwners(ctx context.Context) error
	// DefaultRange returns the lookback window used when the caller gives none.
	DefaultRange(now time.Time) domain.DateRange
}

// CategoryResolverSvc maps an aggregator category onto one of the owner's categories.
type CategoryResolverSvc interface {
	// ResolveCategoryID returns nil when the aggregator category has no mapping.
	ResolveCategoryID(ctx context.Context, ownerID, aggregatorCategory string, txnType domain.TransactionType) (*string, error)
}
