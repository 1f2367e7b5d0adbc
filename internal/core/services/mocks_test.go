package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/SscSPs/finledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string, includeInactive bool) ([]domain.Account, error) {
	args := m.Called(ctx, ownerID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListLinkedAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListOwnersWithLinkedAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccountLink(ctx context.Context, accountID, externalAccountID, accessToken, institution string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, externalAccountID, accessToken, institution, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) ResetAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

var _ repositories.AccountRepositoryFacade = (*MockAccountRepository)(nil)

// MockPriceOracle is a mock type for the PriceOracle interface
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func quote(symbol string, price int64) domain.Quote {
	return domain.Quote{Symbol: symbol, Price: decimal.NewFromInt(price), Source: "test"}
}

// MockAggregatorClient is a mock type for the AggregatorClient interface
type MockAggregatorClient struct {
	mock.Mock
}

func (m *MockAggregatorClient) ListTransactions(ctx context.Context, account domain.Account, dateRange domain.DateRange) ([]domain.ExternalRecord, error) {
	args := m.Called(ctx, account, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExternalRecord), args.Error(1)
}

// fixedClock returns a deterministic, advancing clock for services.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

// seedAccount stores an active account in the memory store.
func seedAccount(store *memory.Store, accountID, ownerID string, linked bool) domain.Account {
	acc := domain.Account{
		AccountID:    accountID,
		OwnerID:      ownerID,
		Name:         "Account " + accountID,
		AccountType:  domain.Checking,
		CurrencyCode: "USD",
		Balance:      decimal.Zero,
		IsActive:     true,
	}
	if linked {
		acc.ExternalAccountID = "ext-" + accountID
		acc.AccessToken = "token-" + accountID
	}
	if err := store.SaveAccount(context.Background(), acc); err != nil {
		panic(err)
	}
	return acc
}
