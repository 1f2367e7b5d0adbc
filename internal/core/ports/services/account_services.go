package services

import (
	"context"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/dto"
)

// AccountReaderSvc defines read operations for accounts
type AccountReaderSvc interface {
	// GetAccountByID returns the account when userID owns it, else apperrors.ErrAccountNotFound.
	GetAccountByID(ctx context.Context, userID, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string, includeInactive bool) ([]domain.Account, error)
	// VerifyBalance recomputes the balance from transaction effects and compares it with the stored one.
	VerifyBalance(ctx context.Context, userID, accountID string) (*dto.AccountBalanceResponse, error)
}

// AccountWriterSvc defines write operations for accounts
type AccountWriterSvc interface {
	CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error)
	LinkAccount(ctx context.Context, userID, accountID string, req dto.LinkAccountRequest) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, userID, accountID string) error
	// ResetAccount deletes every transaction, trade and position of the account and zeroes its balance.
	ResetAccount(ctx context.Context, userID, accountID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
