package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"github.com/shopspring/decimal"
)

// DefaultDedupPrefix namespaces aggregator record ids in dedup keys.
const DefaultDedupPrefix = "teller"

const (
	merchantMaxLen     = 50
	defaultDescription = "Bank transaction"
	pendingNote        = "Pending transaction from bank aggregator"
)

type importOutcome string

const (
	outcomeAccepted  importOutcome = "accepted"
	outcomeDuplicate importOutcome = "duplicate"
	outcomeSettled   importOutcome = "settled"
	outcomeFailed    importOutcome = "failed"
)

type importService struct {
	BaseService
	transactionRepo portsrepo.TransactionReader
	transactions    portssvc.TransactionSvcFacade
	categories      portssvc.CategoryResolverSvc
	dedupPrefix     string
	source          domain.TransactionSource
}

// ImportServiceOption is a functional option for configuring the importer
type ImportServiceOption func(*importService)

// WithDedupPrefix changes the namespace used in dedup keys, e.g. for a second aggregator.
func WithDedupPrefix(prefix string) ImportServiceOption {
	return func(s *importService) {
		if prefix != "" {
			s.dedupPrefix = prefix
		}
	}
}

// WithImportSource tags imported transactions with a source other than SYNC.
func WithImportSource(source domain.TransactionSource) ImportServiceOption {
	return func(s *importService) {
		s.source = source
	}
}

// NewImportService creates the external transaction importer.
func NewImportService(
	accountRepo portsrepo.AccountReader,
	transactionRepo portsrepo.TransactionReader,
	transactions portssvc.TransactionSvcFacade,
	categories portssvc.CategoryResolverSvc,
	options ...ImportServiceOption,
) portssvc.ImportSvc {
	svc := &importService{
		BaseService:     BaseService{AccountReader: accountRepo},
		transactionRepo: transactionRepo,
		transactions:    transactions,
		categories:      categories,
		dedupPrefix:     DefaultDedupPrefix,
		source:          domain.SourceSync,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ImportSvc = (*importService)(nil)

// ImportBatch processes records in arrival order. Per-record failures are
// collected in the result and never abort the batch. Cancellation stops the
// loop between records; records already posted stay posted.
func (s *importService) ImportBatch(ctx context.Context, userID, accountID string, records []domain.ExternalRecord) (*domain.ImportResult, error) {
	account, err := s.AuthorizeAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}

	result := &domain.ImportResult{Total: len(records), Failed: []domain.RecordFailure{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.LogWarn(ctx, err, "Import interrupted",
				slog.String("account_id", accountID),
				slog.Int("processed", result.Accepted+result.SkippedDuplicates+result.Settled+len(result.Failed)))
			return result, err
		}

		outcome, err := s.importRecord(ctx, userID, account, rec)
		metrics.ImportedRecords.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case outcomeAccepted:
			result.Accepted++
		case outcomeDuplicate:
			result.SkippedDuplicates++
		case outcomeSettled:
			result.Settled++
		default:
			s.LogWarn(ctx, err, "Failed to import record",
				slog.String("account_id", accountID),
				slog.String("record_id", rec.ID))
			result.Failed = append(result.Failed, domain.RecordFailure{RecordID: rec.ID, Message: err.Error()})
		}
	}

	s.LogInfo(ctx, "Import batch finished",
		slog.String("account_id", accountID),
		slog.Int("total", result.Total),
		slog.Int("accepted", result.Accepted),
		slog.Int("duplicates", result.SkippedDuplicates),
		slog.Int("settled", result.Settled),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *importService) importRecord(ctx context.Context, userID string, account *domain.Account, rec domain.ExternalRecord) (importOutcome, error) {
	txn, err := s.normalize(account, rec)
	if err != nil {
		return outcomeFailed, err
	}

	existing, err := s.findExisting(ctx, txn)
	if err != nil {
		return outcomeFailed, err
	}
	if existing != nil {
		if existing.IsPending() && !txn.IsPending() {
			if err := s.transactions.SettleTransaction(ctx, userID, *existing); err != nil {
				return outcomeFailed, err
			}
			return outcomeSettled, nil
		}
		return outcomeDuplicate, nil
	}

	if s.categories != nil {
		categoryID, err := s.categories.ResolveCategoryID(ctx, userID, rec.Details.Category, txn.Type)
		if err != nil {
			// uncategorized is better than dropping the record
			s.LogWarn(ctx, err, "Importing record without category", slog.String("record_id", rec.ID))
		} else {
			txn.CategoryID = categoryID
		}
	}

	if _, err := s.transactions.ApplyDelta(ctx, userID, txn); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// lost a race with a concurrent import of the same record
			return outcomeDuplicate, nil
		}
		return outcomeFailed, err
	}
	return outcomeAccepted, nil
}

// findExisting looks a record up by dedup key first, then by fingerprint.
func (s *importService) findExisting(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	if txn.DedupKey != nil {
		existing, err := s.transactionRepo.FindTransactionByDedupKey(ctx, txn.AccountID, *txn.DedupKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	existing, err := s.transactionRepo.FindTransactionByFingerprint(ctx, domain.FingerprintOf(txn))
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// normalize converts an aggregator record into an unsaved transaction.
// Aggregator amounts are signed, negative meaning money out.
func (s *importService) normalize(account *domain.Account, rec domain.ExternalRecord) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(rec.Amount))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: invalid amount %q", apperrors.ErrValidation, rec.Amount)
	}
	// match what storage keeps so a re-import fingerprints the same
	amount = amount.Round(domain.AmountScale)
	date, err := parseRecordDate(rec.Date)
	if err != nil {
		return domain.Transaction{}, err
	}

	description := strings.TrimSpace(rec.Description)
	if description == "" {
		description = strings.TrimSpace(rec.Details.Counterparty.Name)
	}
	if description == "" {
		description = defaultDescription
	}

	status := domain.StatusPosted
	notes := ""
	if strings.EqualFold(rec.Status, "pending") {
		status = domain.StatusPending
		notes = pendingNote
	}

	metadata := map[string]string{"aggregator": s.dedupPrefix}
	if rec.Type != "" {
		metadata["aggregator_type"] = rec.Type
	}
	if rec.Details.Category != "" {
		metadata["aggregator_category"] = rec.Details.Category
	}

	txn := domain.Transaction{
		AccountID:   account.AccountID,
		Amount:      amount.Abs(),
		Type:        classifyRecord(rec.Type, amount),
		Description: description,
		Date:        date,
		Merchant:    merchantFor(rec, description),
		Source:      s.source,
		Status:      status,
		IsRecurring: isLikelyRecurring(rec),
		Notes:       notes,
		Metadata:    metadata,
	}
	if id := strings.TrimSpace(rec.ID); id != "" {
		key := s.dedupPrefix + ":" + id
		txn.DedupKey = &key
		metadata["aggregator_id"] = id
	}
	return txn, nil
}

func parseRecordDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", apperrors.ErrValidation, raw)
}

// classifyRecord follows the aggregator convention: transfers never move the
// balance, non-negative amounts are income and negative ones are expenses.
func classifyRecord(recordType string, amount decimal.Decimal) domain.TransactionType {
	if strings.EqualFold(recordType, "transfer") {
		return domain.Transfer
	}
	if amount.IsNegative() {
		return domain.Expense
	}
	return domain.Income
}

func merchantFor(rec domain.ExternalRecord, description string) string {
	if name := strings.TrimSpace(rec.Details.Counterparty.Name); name != "" {
		return name
	}
	runes := []rune(description)
	if len(runes) > merchantMaxLen {
		return string(runes[:merchantMaxLen])
	}
	return description
}

func isLikelyRecurring(rec domain.ExternalRecord) bool {
	if rec.Details.Recurring != nil && *rec.Details.Recurring {
		return true
	}
	if strings.EqualFold(rec.Details.Counterparty.Type, "ach") {
		return true
	}
	desc := strings.ToLower(rec.Description)
	return strings.Contains(desc, "subscription") || strings.Contains(desc, "rent")
}
