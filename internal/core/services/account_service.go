package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type accountService struct {
	BaseService
	accountRepo     portsrepo.AccountRepositoryFacade
	transactionRepo portsrepo.TransactionReader
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithTransactionReader enables VerifyBalance.
func WithTransactionReader(repo portsrepo.TransactionReader) AccountServiceOption {
	return func(s *accountService) {
		s.transactionRepo = repo
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		BaseService: BaseService{AccountReader: repo},
		accountRepo: repo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	account := domain.Account{
		AccountID:       uuid.NewString(),
		OwnerID:         userID,
		Name:            strings.TrimSpace(req.Name),
		AccountType:     req.AccountType,
		CurrencyCode:    strings.ToUpper(req.CurrencyCode),
		Balance:         decimal.Zero,
		InstitutionName: req.InstitutionName,
		IsActive:        true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("account_id", account.AccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("account_type", string(account.AccountType)))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	return s.AuthorizeAccount(ctx, userID, accountID)
}

func (s *accountService) ListAccounts(ctx context.Context, userID string, includeInactive bool) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, userID, includeInactive)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list accounts for user %s: %w", userID, err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) LinkAccount(ctx context.Context, userID, accountID string, req dto.LinkAccountRequest) (*domain.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	account, err := s.AuthorizeAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}

	now := s.now()
	if err := s.accountRepo.UpdateAccountLink(ctx, accountID, req.ExternalAccountID, req.AccessToken, req.InstitutionName, userID, now); err != nil {
		s.LogError(ctx, err, "Failed to link account", slog.String("account_id", accountID))
		return nil, err
	}

	account.ExternalAccountID = req.ExternalAccountID
	account.AccessToken = req.AccessToken
	if req.InstitutionName != "" {
		account.InstitutionName = req.InstitutionName
	}
	account.LastUpdatedAt = now
	account.LastUpdatedBy = userID

	s.LogInfo(ctx, "Account linked to aggregator", slog.String("account_id", accountID))
	return account, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, userID, accountID string) error {
	account, err := s.AuthorizeAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return nil
	}
	if err := s.accountRepo.DeactivateAccount(ctx, accountID, userID, s.now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("account_id", accountID))
		return err
	}
	s.LogInfo(ctx, "Account deactivated", slog.String("account_id", accountID))
	return nil
}

func (s *accountService) ResetAccount(ctx context.Context, userID, accountID string) error {
	if _, err := s.AuthorizeAccount(ctx, userID, accountID); err != nil {
		return err
	}
	if err := s.accountRepo.ResetAccount(ctx, accountID, userID, s.now()); err != nil {
		s.LogError(ctx, err, "Failed to reset account", slog.String("account_id", accountID))
		return err
	}
	s.LogInfo(ctx, "Account reset", slog.String("account_id", accountID))
	return nil
}

func (s *accountService) VerifyBalance(ctx context.Context, userID, accountID string) (*dto.AccountBalanceResponse, error) {
	if s.transactionRepo == nil {
		return nil, fmt.Errorf("%w: balance verification is not configured", apperrors.ErrInternal)
	}
	account, err := s.AuthorizeAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	computed, err := s.transactionRepo.SumSignedEffects(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum transaction effects", slog.String("account_id", accountID))
		return nil, err
	}

	res := &dto.AccountBalanceResponse{
		AccountID:       accountID,
		Balance:         account.Balance,
		ComputedBalance: computed,
		Consistent:      account.Balance.Equal(computed),
	}
	if !res.Consistent {
		s.GetLogger(ctx).Warn("Account balance drifted from transaction history",
			slog.String("account_id", accountID),
			slog.String("balance", account.Balance.String()),
			slog.String("computed", computed.String()))
	}
	return res, nil
}
