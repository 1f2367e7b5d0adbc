package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, userID string, includeInactive bool) ([]domain.Account, error) {
	args := m.Called(ctx, userID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) VerifyBalance(ctx context.Context, userID, accountID string) (*dto.AccountBalanceResponse, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AccountBalanceResponse), args.Error(1)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) LinkAccount(ctx context.Context, userID, accountID string, req dto.LinkAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, userID, accountID string) error {
	return m.Called(ctx, userID, accountID).Error(0)
}

func (m *MockAccountService) ResetAccount(ctx context.Context, userID, accountID string) error {
	return m.Called(ctx, userID, accountID).Error(0)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock TransactionService ---
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) ApplyDelta(ctx context.Context, userID string, txn domain.Transaction) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, userID string, req dto.CreateTransactionRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, userID, accountID, limit, nextToken)
	var next *string
	if n, ok := args.Get(1).(*string); ok {
		next = n
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), next, args.Error(2)
}

func (m *MockTransactionService) SettleTransaction(ctx context.Context, userID string, txn domain.Transaction) error {
	return m.Called(ctx, userID, txn).Error(0)
}

var _ portssvc.TransactionSvcFacade = (*MockTransactionService)(nil)

// --- Mock PositionService ---
type MockPositionService struct {
	mock.Mock
}

func (m *MockPositionService) RecordBuy(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Position), args.Error(1)
}

func (m *MockPositionService) RecordSell(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Position), args.Error(1)
}

func (m *MockPositionService) RefreshStalePositions(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

func (m *MockPositionService) RefreshStalePositionsForUser(ctx context.Context, userID string, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, userID, maxAge)
	return args.Int(0), args.Error(1)
}

func (m *MockPositionService) ListPositions(ctx context.Context, userID, accountID string) ([]domain.Position, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Position), args.Error(1)
}

var _ portssvc.PositionSvcFacade = (*MockPositionService)(nil)

// --- Mock SyncService ---
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncAccount(ctx context.Context, userID, accountID string, dateRange domain.DateRange) (*domain.ImportResult, error) {
	args := m.Called(ctx, userID, accountID, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportResult), args.Error(1)
}

func (m *MockSyncService) SyncAll(ctx context.Context, userID string, dateRange domain.DateRange) ([]domain.AccountSyncResult, error) {
	args := m.Called(ctx, userID, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountSyncResult), args.Error(1)
}

func (m *MockSyncService) SyncAllOwners(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSyncService) DefaultRange(now time.Time) domain.DateRange {
	return domain.LastDays(now, 30)
}

var _ portssvc.SyncSvcFacade = (*MockSyncService)(nil)
