package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, s *Store, id, owner string) {
	t.Helper()
	require.NoError(t, s.SaveAccount(context.Background(), domain.Account{
		AccountID: id,
		OwnerID:   owner,
		Name:      "Account " + id,
		Balance:   decimal.Zero,
		IsActive:  true,
	}))
}

func expense(id, accountID string, amount int64, key *string) domain.Transaction {
	return domain.Transaction{
		TransactionID: id,
		AccountID:     accountID,
		OwnerID:       "user-1",
		Amount:        decimal.NewFromInt(amount),
		Type:          domain.Expense,
		Description:   "GROCERY " + id,
		Date:          day,
		DedupKey:      key,
		Source:        domain.SourceSync,
		Status:        domain.StatusPosted,
		AuditFields:   domain.AuditFields{CreatedAt: day.Add(time.Hour)},
	}
}

func strPtr(s string) *string { return &s }

func TestPostTransaction_AppliesDeltaAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	txn := expense("t1", "acc-1", 40, strPtr("teller:abc"))
	require.NoError(t, s.PostTransaction(ctx, txn, txn.SignedEffect(), portsrepo.PostOptions{}))

	again := expense("t2", "acc-1", 40, strPtr("teller:abc"))
	err := s.PostTransaction(ctx, again, again.SignedEffect(), portsrepo.PostOptions{})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	acc, err := s.FindAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-40).Equal(acc.Balance), "balance was %s", acc.Balance)

	_, err = s.FindTransactionByDedupKey(ctx, "acc-1", "teller:abc")
	assert.NoError(t, err)
	_, err = s.FindTransactionByDedupKey(ctx, "acc-2", "teller:abc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostTransaction_FingerprintGuardIsOptIn(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	first := expense("t1", "acc-1", 12, nil)
	require.NoError(t, s.PostTransaction(ctx, first, first.SignedEffect(), portsrepo.PostOptions{}))

	rotated := first
	rotated.TransactionID = "t2"
	rotated.Date = day.Add(15 * time.Hour)
	err := s.PostTransaction(ctx, rotated, rotated.SignedEffect(), portsrepo.PostOptions{CheckFingerprint: true})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	manual := first
	manual.TransactionID = "t3"
	require.NoError(t, s.PostTransaction(ctx, manual, manual.SignedEffect(), portsrepo.PostOptions{}))

	sum, err := s.SumSignedEffects(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-24).Equal(sum))
}

func TestPostTransaction_UnknownAccount(t *testing.T) {
	s := NewStore()
	txn := expense("t1", "missing", 1, nil)
	err := s.PostTransaction(context.Background(), txn, txn.SignedEffect(), portsrepo.PostOptions{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostTransaction_ConcurrentPostsKeepBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn := expense(fmt.Sprintf("t%d", i), "acc-1", 2, strPtr(fmt.Sprintf("k%d", i%25)))
			err := s.PostTransaction(ctx, txn, txn.SignedEffect(), portsrepo.PostOptions{})
			if err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	acc, err := s.FindAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	sum, err := s.SumSignedEffects(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, sum.Equal(acc.Balance), "balance %s != sum %s", acc.Balance, sum)
	assert.True(t, decimal.NewFromInt(-50).Equal(acc.Balance), "25 distinct keys of 2 each")
}

func TestListTransactionsByAccountID_Paginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	for i := 0; i < 5; i++ {
		txn := expense(fmt.Sprintf("t%d", i), "acc-1", 1, nil)
		txn.Date = day.AddDate(0, 0, i)
		require.NoError(t, s.PostTransaction(ctx, txn, txn.SignedEffect(), portsrepo.PostOptions{}))
	}

	page1, next, err := s.ListTransactionsByAccountID(ctx, "acc-1", 2, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Len(t, page1, 2)
	assert.Equal(t, "t4", page1[0].TransactionID)
	assert.Equal(t, "t3", page1[1].TransactionID)

	page2, next, err := s.ListTransactionsByAccountID(ctx, "acc-1", 2, next)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "t2", page2[0].TransactionID)

	page3, next, err := s.ListTransactionsByAccountID(ctx, "acc-1", 2, next)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page3, 1)
	assert.Equal(t, "t0", page3[0].TransactionID)

	bad := "%%%"
	_, _, err = s.ListTransactionsByAccountID(ctx, "acc-1", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordTrade_MutationErrorPersistsNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	trade := domain.Trade{TradeID: "tr-1", AccountID: "acc-1", Symbol: "AAPL", Side: domain.Sell, Quantity: decimal.NewFromInt(1)}
	_, err := s.RecordTrade(ctx, trade, func(existing *domain.Position, history []domain.Trade) (*domain.Position, error) {
		assert.Nil(t, existing)
		assert.Len(t, history, 1)
		return nil, apperrors.ErrInsufficientPosition
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPosition)

	trades, err := s.ListTrades(ctx, "acc-1", "AAPL")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestRecordTrade_NilPositionDeletesRow(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")

	open := func(*domain.Position, []domain.Trade) (*domain.Position, error) {
		return &domain.Position{PositionID: "p1", AccountID: "acc-1", Symbol: "MSFT", Quantity: decimal.NewFromInt(3)}, nil
	}
	closeIt := func(*domain.Position, []domain.Trade) (*domain.Position, error) { return nil, nil }

	_, err := s.RecordTrade(ctx, domain.Trade{TradeID: "a", AccountID: "acc-1", Symbol: "MSFT", Side: domain.Buy}, open)
	require.NoError(t, err)
	_, err = s.FindPosition(ctx, "acc-1", "MSFT")
	require.NoError(t, err)

	pos, err := s.RecordTrade(ctx, domain.Trade{TradeID: "b", AccountID: "acc-1", Symbol: "MSFT", Side: domain.Sell}, closeIt)
	require.NoError(t, err)
	assert.Nil(t, pos)
	_, err = s.FindPosition(ctx, "acc-1", "MSFT")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	trades, _ := s.ListTrades(ctx, "acc-1", "MSFT")
	assert.Len(t, trades, 2)
}

func TestRevaluePosition_TouchesValuationOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")
	_, err := s.RecordTrade(ctx, domain.Trade{TradeID: "a", AccountID: "acc-1", Symbol: "VTI", Side: domain.Buy},
		func(*domain.Position, []domain.Trade) (*domain.Position, error) {
			return &domain.Position{
				AccountID: "acc-1", Symbol: "VTI", OwnerID: "user-1",
				Quantity: decimal.NewFromInt(4), AverageCost: decimal.NewFromInt(100), TotalCost: decimal.NewFromInt(400),
				LastUpdated: day,
			}, nil
		})
	require.NoError(t, err)

	stale, err := s.ListStalePositions(ctx, "", day.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, s.RevaluePosition(ctx, "acc-1", "VTI", decimal.NewFromInt(110), day.Add(time.Hour)))
	p, err := s.FindPosition(ctx, "acc-1", "VTI")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(p.Quantity))
	assert.True(t, decimal.NewFromInt(400).Equal(p.TotalCost))
	assert.True(t, decimal.NewFromInt(440).Equal(p.TotalValue))
	assert.True(t, decimal.NewFromInt(40).Equal(p.UnrealizedGain))

	assert.ErrorIs(t, s.RevaluePosition(ctx, "acc-1", "NOPE", decimal.NewFromInt(1), day), apperrors.ErrNotFound)
}

func TestResetAccount_ClearsLedgerAndBalance(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-1")
	seedAccount(t, s, "acc-2", "user-1")

	for _, id := range []string{"acc-1", "acc-2"} {
		txn := expense("t-"+id, id, 10, nil)
		require.NoError(t, s.PostTransaction(ctx, txn, txn.SignedEffect(), portsrepo.PostOptions{}))
	}

	require.NoError(t, s.ResetAccount(ctx, "acc-1", "user-1", day))

	acc, _ := s.FindAccountByID(ctx, "acc-1")
	assert.True(t, acc.Balance.IsZero())
	page, _, _ := s.ListTransactionsByAccountID(ctx, "acc-1", 10, nil)
	assert.Empty(t, page)

	other, _ := s.FindAccountByID(ctx, "acc-2")
	assert.True(t, decimal.NewFromInt(-10).Equal(other.Balance))
}

func TestListOwnersWithLinkedAccounts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "acc-1", "user-b")
	seedAccount(t, s, "acc-2", "user-a")
	seedAccount(t, s, "acc-3", "user-c")

	require.NoError(t, s.UpdateAccountLink(ctx, "acc-1", "ext-1", "tok", "Bank", "user-b", day))
	require.NoError(t, s.UpdateAccountLink(ctx, "acc-2", "ext-2", "tok", "Bank", "user-a", day))
	require.NoError(t, s.UpdateAccountLink(ctx, "acc-3", "ext-3", "tok", "Bank", "user-c", day))
	require.NoError(t, s.DeactivateAccount(ctx, "acc-3", "user-c", day))

	owners, err := s.ListOwnersWithLinkedAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a", "user-b"}, owners)
}

func TestFindOrCreateCategory_IsIdempotentPerOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.FindOrCreateCategory(ctx, domain.Category{CategoryID: "c1", OwnerID: "u1", Name: "Shopping"})
	require.NoError(t, err)
	second, err := s.FindOrCreateCategory(ctx, domain.Category{CategoryID: "c2", OwnerID: "u1", Name: "Shopping"})
	require.NoError(t, err)
	assert.Equal(t, first.CategoryID, second.CategoryID)

	other, err := s.FindOrCreateCategory(ctx, domain.Category{CategoryID: "c3", OwnerID: "u2", Name: "Shopping"})
	require.NoError(t, err)
	assert.Equal(t, "c3", other.CategoryID)
}
