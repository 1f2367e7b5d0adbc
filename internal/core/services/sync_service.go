package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"golang.org/x/sync/errgroup"
)

type syncService struct {
	BaseService
	accountRepo  portsrepo.AccountReader
	importer     portssvc.ImportSvc
	aggregator   portssvc.AggregatorClient
	fetchTimeout time.Duration
	concurrency  int
	lookbackDays int
	running      atomic.Bool
}

// SyncServiceOption is a functional option for configuring the sync orchestrator
type SyncServiceOption func(*syncService)

// WithFetchTimeout bounds each aggregator call.
func WithFetchTimeout(d time.Duration) SyncServiceOption {
	return func(s *syncService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithSyncConcurrency bounds how many accounts of one user sync in parallel.
func WithSyncConcurrency(n int) SyncServiceOption {
	return func(s *syncService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLookbackDays sets the default window used when no date range is given.
func WithLookbackDays(days int) SyncServiceOption {
	return func(s *syncService) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

// WithSyncClock overrides the clock used to compute default ranges.
func WithSyncClock(now func() time.Time) SyncServiceOption {
	return func(s *syncService) {
		s.Now = now
	}
}

// NewSyncService creates the sync orchestrator.
func NewSyncService(accountRepo portsrepo.AccountReader, aggregator portssvc.AggregatorClient, importer portssvc.ImportSvc, options ...SyncServiceOption) portssvc.SyncSvcFacade {
	svc := &syncService{
		BaseService:  BaseService{AccountReader: accountRepo},
		accountRepo:  accountRepo,
		importer:     importer,
		aggregator:   aggregator,
		fetchTimeout: 30 * time.Second,
		concurrency:  4,
		lookbackDays: 30,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SyncSvcFacade = (*syncService)(nil)

func (s *syncService) DefaultRange(now time.Time) domain.DateRange {
	return domain.LastDays(now, s.lookbackDays)
}

func (s *syncService) SyncAccount(ctx context.Context, userID, accountID string, dateRange domain.DateRange) (*domain.ImportResult, error) {
	account, err := s.AuthorizeAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}
	if !account.IsLinked() {
		return nil, fmt.Errorf("%w: account %s is not linked to a bank", apperrors.ErrValidation, accountID)
	}
	if dateRange.Start.IsZero() && dateRange.End.IsZero() {
		dateRange = s.DefaultRange(s.now())
	}
	if !dateRange.End.IsZero() && dateRange.End.Before(dateRange.Start) {
		return nil, fmt.Errorf("%w: end date is before start date", apperrors.ErrValidation)
	}

	start := time.Now()
	result, err := s.syncLinkedAccount(ctx, userID, account, dateRange)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AccountSyncs.WithLabelValues("failed").Inc()
		// an interrupted import still reports what it committed
		return result, err
	}
	metrics.AccountSyncs.WithLabelValues("succeeded").Inc()
	return result, nil
}

func (s *syncService) syncLinkedAccount(ctx context.Context, userID string, account *domain.Account, dateRange domain.DateRange) (*domain.ImportResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	records, err := s.aggregator.ListTransactions(fetchCtx, *account, dateRange)
	cancel()
	if err != nil {
		if !errors.Is(err, apperrors.ErrAggregator) {
			err = fmt.Errorf("%w: %v", apperrors.ErrAggregator, err)
		}
		s.LogError(ctx, err, "Failed to fetch transactions from aggregator", slog.String("account_id", account.AccountID))
		return nil, err
	}

	s.LogDebug(ctx, "Fetched aggregator transactions",
		slog.String("account_id", account.AccountID),
		slog.Int("count", len(records)))

	return s.importer.ImportBatch(ctx, userID, account.AccountID, records)
}

func (s *syncService) SyncAll(ctx context.Context, userID string, dateRange domain.DateRange) ([]domain.AccountSyncResult, error) {
	accounts, err := s.accountRepo.ListLinkedAccounts(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list linked accounts", slog.String("user_id", userID))
		return nil, err
	}

	results := make([]domain.AccountSyncResult, len(accounts))
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, account := range accounts {
		g.Go(func() error {
			res := domain.AccountSyncResult{AccountID: account.AccountID, AccountName: account.Name}
			imported, err := s.SyncAccount(ctx, userID, account.AccountID, dateRange)
			res.Result = imported
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	s.LogInfo(ctx, "Sync of linked accounts finished",
		slog.String("user_id", userID),
		slog.Int("accounts", len(results)),
		slog.Int("failed", failed))

	return results, ctx.Err()
}

func (s *syncService) SyncAllOwners(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.LogInfo(ctx, "Previous background sync still running, skipping")
		return nil
	}
	defer s.running.Store(false)

	owners, err := s.accountRepo.ListOwnersWithLinkedAccounts(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list owners with linked accounts")
		return err
	}

	dateRange := s.DefaultRange(s.now())
	var errs []error
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ownerCtx := middleware.WithLogger(ctx, s.GetLogger(ctx).With(slog.String("user_id", owner)))
		if _, err := s.SyncAll(ownerCtx, owner, dateRange); err != nil {
			s.LogError(ownerCtx, err, "Background sync failed for owner")
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
		}
	}
	return errors.Join(errs...)
}
