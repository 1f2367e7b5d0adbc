package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccountsByOwner retrieves accounts belonging to a user, optionally including inactive ones.
	ListAccountsByOwner(ctx context.Context, ownerID string, includeInactive bool) ([]domain.Account, error)

	// ListLinkedAccounts retrieves active accounts of a user that carry an aggregator credential.
	ListLinkedAccounts(ctx context.Context, ownerID string) ([]domain.Account, error)

	// ListOwnersWithLinkedAccounts returns the distinct owners that have at least one active linked account.
	ListOwnersWithLinkedAccounts(ctx context.Context) ([]string, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccountLink stores the aggregator credential and external id on an account.
	UpdateAccountLink(ctx context.Context, accountID, externalAccountID, accessToken, institution string, userID string, now time.Time) error

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error

	// ResetAccount deletes all transactions, trades and positions of an account and zeroes its balance atomically.
	ResetAccount(ctx context.Context, accountID string, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
