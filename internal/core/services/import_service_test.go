package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/core/services"
	"github.com/SscSPs/finledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ImportServiceTestSuite struct {
	suite.Suite
	store    *memory.Store
	importer portssvc.ImportSvc
	ctx      context.Context
}

func (suite *ImportServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	txnSvc := services.NewTransactionService(suite.store, suite.store)
	suite.importer = services.NewImportService(suite.store, suite.store, txnSvc, services.NewCategoryResolver(suite.store))
	seedAccount(suite.store, "acc-1", "user-1", true)
}

func record(id, date, amount, description string) domain.ExternalRecord {
	return domain.ExternalRecord{
		ID:          id,
		AccountID:   "ext-acc-1",
		Date:        date,
		Amount:      amount,
		Description: description,
		Type:        "card_payment",
		Status:      "posted",
	}
}

func (suite *ImportServiceTestSuite) balance() decimal.Decimal {
	acc, err := suite.store.FindAccountByID(suite.ctx, "acc-1")
	suite.Require().NoError(err)
	return acc.Balance
}

func (suite *ImportServiceTestSuite) transactions() []domain.Transaction {
	txns, _, err := suite.store.ListTransactionsByAccountID(suite.ctx, "acc-1", 100, nil)
	suite.Require().NoError(err)
	return txns
}

func (suite *ImportServiceTestSuite) TestImportBatch_IsIdempotent() {
	batch := []domain.ExternalRecord{
		record("txn_1", "2024-05-01", "-12.50", "Coffee Roasters"),
		record("txn_2", "2024-05-02", "2500.00", "Payroll"),
		record("txn_3", "2024-05-03", "-80.00", "Grocery Mart"),
	}

	first, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", batch)
	suite.Require().NoError(err)
	suite.Equal(3, first.Total)
	suite.Equal(3, first.Accepted)
	suite.Empty(first.Failed)
	suite.True(decimal.RequireFromString("2407.50").Equal(suite.balance()))

	second, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", batch)
	suite.Require().NoError(err)
	suite.Equal(0, second.Accepted)
	suite.Equal(3, second.SkippedDuplicates)
	suite.True(decimal.RequireFromString("2407.50").Equal(suite.balance()))
	suite.Len(suite.transactions(), 3)
}

func (suite *ImportServiceTestSuite) TestImportBatch_FingerprintCatchesRotatedIDs() {
	_, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("txn_old", "2024-05-01", "-40.00", "Gas Station"),
	})
	suite.Require().NoError(err)

	res, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("txn_new", "2024-05-01", "-40.00", "Gas Station"),
	})
	suite.Require().NoError(err)
	suite.Equal(1, res.SkippedDuplicates)
	suite.True(decimal.NewFromInt(-40).Equal(suite.balance()))
}

func (suite *ImportServiceTestSuite) TestImportBatch_FingerprintMatchesStoredScale() {
	_, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("txn_a", "2024-05-01", "-10.12345", "Parking"),
	})
	suite.Require().NoError(err)

	txns := suite.transactions()
	suite.Require().Len(txns, 1)
	suite.Equal("10.1235", txns[0].Amount.String())

	res, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("txn_b", "2024-05-01", "-10.12349", "Parking"),
	})
	suite.Require().NoError(err)
	suite.Equal(0, res.Accepted)
	suite.Equal(1, res.SkippedDuplicates)
	suite.True(decimal.RequireFromString("-10.1235").Equal(suite.balance()))
}

func (suite *ImportServiceTestSuite) TestImportBatch_SettlesPendingRecord() {
	pending := record("txn_p", "2024-05-04", "-19.99", "Streaming Subscription")
	pending.Status = "pending"

	res, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{pending})
	suite.Require().NoError(err)
	suite.Equal(1, res.Accepted)

	txns := suite.transactions()
	suite.Require().Len(txns, 1)
	suite.Equal(domain.StatusPending, txns[0].Status)
	suite.Equal("Pending transaction from bank aggregator", txns[0].Notes)
	suite.True(txns[0].IsRecurring)

	posted := pending
	posted.Status = "posted"
	res, err = suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{posted})
	suite.Require().NoError(err)
	suite.Equal(1, res.Settled)
	suite.Equal(0, res.Accepted)

	txns = suite.transactions()
	suite.Require().Len(txns, 1)
	suite.Equal(domain.StatusPosted, txns[0].Status)
	suite.True(decimal.RequireFromString("-19.99").Equal(suite.balance()))
}

func (suite *ImportServiceTestSuite) TestImportBatch_ClassifiesAndEnriches() {
	transfer := record("t1", "2024-05-05", "-300.00", "Transfer to savings")
	transfer.Type = "transfer"

	dining := record("t2", "2024-05-05", "-45.10", "Bistro")
	dining.Details.Category = "Dining"
	dining.Details.Counterparty = domain.ExternalCounterparty{Name: "Le Bistro", Type: "organization"}

	refund := record("t3", "2024-05-06T10:15:00Z", "15.00", strings.Repeat("R", 60))
	refund.Details.Category = "unknown-bucket"

	rent := record("t4", "2024-05-07", "-1500.00", "Monthly RENT payment")
	rent.Details.Category = "home"

	res, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{transfer, dining, refund, rent})
	suite.Require().NoError(err)
	suite.Equal(4, res.Accepted)

	byKey := map[string]domain.Transaction{}
	for _, txn := range suite.transactions() {
		suite.Require().NotNil(txn.DedupKey)
		byKey[*txn.DedupKey] = txn
	}

	suite.Equal(domain.Transfer, byKey["teller:t1"].Type)
	suite.True(decimal.NewFromInt(300).Equal(byKey["teller:t1"].Amount))

	d := byKey["teller:t2"]
	suite.Equal(domain.Expense, d.Type)
	suite.Equal("Le Bistro", d.Merchant)
	suite.Require().NotNil(d.CategoryID)
	suite.Equal(domain.SourceSync, d.Source)
	suite.Equal("Dining", d.Metadata["aggregator_category"])
	suite.Equal("t2", d.Metadata["aggregator_id"])

	r := byKey["teller:t3"]
	suite.Equal(domain.Income, r.Type)
	suite.Nil(r.CategoryID)
	suite.Len([]rune(r.Merchant), 50)
	suite.Equal(2024, r.Date.Year())
	suite.False(r.IsRecurring)

	suite.True(byKey["teller:t4"].IsRecurring)

	categories, err := suite.store.ListCategories(suite.ctx, "user-1")
	suite.Require().NoError(err)
	names := []string{}
	for _, c := range categories {
		names = append(names, c.Name)
		suite.Equal(domain.DefaultCategoryColor, c.Color)
	}
	suite.ElementsMatch([]string{"Food & Dining", "Home"}, names)

	// -300 transfer is excluded from the balance
	suite.True(decimal.RequireFromString("-1530.10").Equal(suite.balance()))
}

func (suite *ImportServiceTestSuite) TestImportBatch_BadRecordDoesNotAbortBatch() {
	res, err := suite.importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("ok_1", "2024-05-01", "-5.00", "Snack"),
		record("bad_amount", "2024-05-01", "twelve", "Broken"),
		record("bad_date", "05/01/2024", "-1.00", "Broken date"),
		record("ok_2", "2024-05-02", "-7.00", "Lunch"),
	})
	suite.Require().NoError(err)

	suite.Equal(4, res.Total)
	suite.Equal(2, res.Accepted)
	suite.Require().Len(res.Failed, 2)
	suite.Equal("bad_amount", res.Failed[0].RecordID)
	suite.Equal("bad_date", res.Failed[1].RecordID)
	suite.True(decimal.NewFromInt(-12).Equal(suite.balance()))
}

func (suite *ImportServiceTestSuite) TestImportBatch_CancelledContext() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	res, err := suite.importer.ImportBatch(ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("c1", "2024-05-01", "-5.00", "Snack"),
	})
	suite.ErrorIs(err, context.Canceled)
	suite.Require().NotNil(res)
	suite.Equal(0, res.Accepted)
	suite.True(suite.balance().IsZero())

	// the same interruption surfaced through a sync keeps the partial result
	aggregator := new(MockAggregatorClient)
	aggregator.On("ListTransactions", mock.Anything, linkedAccount("acc-1"), mock.Anything).
		Return([]domain.ExternalRecord{record("c1", "2024-05-01", "-5.00", "Snack")}, nil)
	syncer := services.NewSyncService(suite.store, aggregator, suite.importer)

	synced, err := syncer.SyncAccount(ctx, "user-1", "acc-1", domain.DateRange{})
	suite.ErrorIs(err, context.Canceled)
	suite.Require().NotNil(synced)
	suite.Equal(1, synced.Total)
	suite.Equal(0, synced.Accepted)
}

func (suite *ImportServiceTestSuite) TestImportBatch_RejectsForeignAccount() {
	_, err := suite.importer.ImportBatch(suite.ctx, "user-2", "acc-1", nil)
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *ImportServiceTestSuite) TestImportBatch_DedupPrefixOption() {
	txnSvc := services.NewTransactionService(suite.store, suite.store)
	importer := services.NewImportService(suite.store, suite.store, txnSvc, nil,
		services.WithDedupPrefix("plaid"), services.WithImportSource(domain.SourceImport))

	_, err := importer.ImportBatch(suite.ctx, "user-1", "acc-1", []domain.ExternalRecord{
		record("p1", "2024-05-01", "-3.00", "Parking"),
	})
	suite.Require().NoError(err)

	txns := suite.transactions()
	suite.Require().Len(txns, 1)
	suite.Equal("plaid:p1", *txns[0].DedupKey)
	suite.Equal(domain.SourceImport, txns[0].Source)
}

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}
