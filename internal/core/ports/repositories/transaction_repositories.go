package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PostOptions controls the duplicate re-check performed inside PostTransaction.
type PostOptions struct {
	// CheckFingerprint makes the post fail with apperrors.ErrDuplicate when a
	// transaction with the same account, description, day and absolute amount exists.
	CheckFingerprint bool
}

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByDedupKey returns the transaction carrying dedupKey on the account, or apperrors.ErrNotFound.
	FindTransactionByDedupKey(ctx context.Context, accountID, dedupKey string) (*domain.Transaction, error)

	// FindTransactionByFingerprint returns a transaction matching the duplicate guard fingerprint, or apperrors.ErrNotFound.
	FindTransactionByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Transaction, error)

	// ListTransactionsByAccountID retrieves a page of transactions for an account, newest first.
	// It returns the transactions, a token for the next page, and an error.
	ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)

	// SumSignedEffects returns the balance implied by every transaction currently posted to the account.
	SumSignedEffects(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// TransactionWriter defines write operations for transaction data
type TransactionWriter interface {
	// PostTransaction inserts txn and adds delta to the account balance in one
	// atomic unit, holding the account's write lock. A dedup key or fingerprint
	// collision fails with apperrors.ErrDuplicate and writes nothing.
	PostTransaction(ctx context.Context, txn domain.Transaction, delta decimal.Decimal, opts PostOptions) error

	// MarkTransactionPosted transitions a pending transaction to posted.
	MarkTransactionPosted(ctx context.Context, transactionID string, now time.Time) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
