package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/google/uuid"
)

type transactionService struct {
	BaseService
	transactionRepo portsrepo.TransactionRepositoryFacade
}

// NewTransactionService creates the service that posts transactions and keeps balances in step.
func NewTransactionService(accountRepo portsrepo.AccountReader, transactionRepo portsrepo.TransactionRepositoryFacade) portssvc.TransactionSvcFacade {
	return &transactionService{
		BaseService:     BaseService{AccountReader: accountRepo},
		transactionRepo: transactionRepo,
	}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

func (s *transactionService) ApplyDelta(ctx context.Context, userID string, txn domain.Transaction) (*domain.Transaction, error) {
	account, err := s.AuthorizeAccount(ctx, userID, txn.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, account.AccountID)
	}
	if err := checkTransaction(txn); err != nil {
		return nil, err
	}

	now := s.now()
	if txn.TransactionID == "" {
		txn.TransactionID = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = domain.StatusPosted
	}
	if txn.Source == "" {
		txn.Source = domain.SourceManual
	}
	txn.OwnerID = userID
	txn.CreatedAt = now
	txn.CreatedBy = userID
	txn.LastUpdatedAt = now
	txn.LastUpdatedBy = userID

	delta := txn.SignedEffect()
	opts := portsrepo.PostOptions{CheckFingerprint: txn.Source != domain.SourceManual}

	if err := s.transactionRepo.PostTransaction(ctx, txn, delta, opts); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			s.LogDebug(ctx, "Transaction already recorded",
				slog.String("account_id", txn.AccountID),
				slog.String("description", txn.Description))
			return nil, err
		}
		s.LogError(ctx, err, "Failed to post transaction",
			slog.String("account_id", txn.AccountID),
			slog.String("transaction_id", txn.TransactionID))
		return nil, err
	}

	s.LogDebug(ctx, "Transaction posted",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("account_id", txn.AccountID),
		slog.String("delta", delta.String()))
	return &txn, nil
}

// checkTransaction enforces the invariants every stored transaction must satisfy.
func checkTransaction(txn domain.Transaction) error {
	switch txn.Type {
	case domain.Income, domain.Expense, domain.Transfer:
	default:
		return fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, txn.Type)
	}
	switch txn.Status {
	case "", domain.StatusPosted, domain.StatusPending:
	default:
		return fmt.Errorf("%w: unknown transaction status %q", apperrors.ErrValidation, txn.Status)
	}
	if txn.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", apperrors.ErrValidation)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: date is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(txn.Description) == "" {
		return fmt.Errorf("%w: description is required", apperrors.ErrValidation)
	}
	return nil
}

func (s *transactionService) CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	amount := req.Amount.Round(domain.AmountScale)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	txn := domain.Transaction{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
		Merchant:    req.Merchant,
		Source:      domain.SourceManual,
		Status:      req.Status,
		IsRecurring: req.IsRecurring,
		Notes:       req.Notes,
	}
	return s.ApplyDelta(ctx, userID, txn)
}

func (s *transactionService) ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if _, err := s.AuthorizeAccount(ctx, userID, accountID); err != nil {
		return nil, nil, err
	}

	txns, next, err := s.transactionRepo.ListTransactionsByAccountID(ctx, accountID, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, nil, err
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, next, nil
}

func (s *transactionService) SettleTransaction(ctx context.Context, userID string, txn domain.Transaction) error {
	if _, err := s.AuthorizeAccount(ctx, userID, txn.AccountID); err != nil {
		return err
	}
	if !txn.IsPending() {
		return nil
	}
	if err := s.transactionRepo.MarkTransactionPosted(ctx, txn.TransactionID, s.now()); err != nil {
		s.LogError(ctx, err, "Failed to settle pending transaction", slog.String("transaction_id", txn.TransactionID))
		return err
	}
	s.LogDebug(ctx, "Pending transaction settled", slog.String("transaction_id", txn.TransactionID))
	return nil
}
