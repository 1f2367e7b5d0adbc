package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"github.com/SscSPs/finledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type positionService struct {
	BaseService
	positionRepo       portsrepo.PositionRepositoryFacade
	oracle             portssvc.PriceOracle
	refreshConcurrency int
}

// PositionServiceOption is a functional option for configuring the position service
type PositionServiceOption func(*positionService)

// WithPriceOracle sets the quote source. Without one, trades are valued at their own price.
func WithPriceOracle(oracle portssvc.PriceOracle) PositionServiceOption {
	return func(s *positionService) {
		s.oracle = oracle
	}
}

// WithRefreshConcurrency bounds how many symbols are quoted at once during a refresh.
func WithRefreshConcurrency(n int) PositionServiceOption {
	return func(s *positionService) {
		if n > 0 {
			s.refreshConcurrency = n
		}
	}
}

// WithPositionClock overrides the clock used for LastUpdated.
func WithPositionClock(now func() time.Time) PositionServiceOption {
	return func(s *positionService) {
		s.Now = now
	}
}

// NewPositionService creates the position ledger.
func NewPositionService(accountRepo portsrepo.AccountReader, positionRepo portsrepo.PositionRepositoryFacade, options ...PositionServiceOption) portssvc.PositionSvcFacade {
	svc := &positionService{
		BaseService:        BaseService{AccountReader: accountRepo},
		positionRepo:       positionRepo,
		refreshConcurrency: 4,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PositionSvcFacade = (*positionService)(nil)

func (s *positionService) RecordBuy(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error) {
	trade, err := s.prepareTrade(ctx, userID, req, domain.Buy)
	if err != nil {
		return nil, err
	}

	// quote before taking the account lock
	price := s.currentPrice(ctx, trade.Symbol, trade.Price)
	now := s.now()

	pos, err := s.positionRepo.RecordTrade(ctx, *trade, func(existing *domain.Position, history []domain.Trade) (*domain.Position, error) {
		basis := accounting.RebuildCostBasis(history)
		if !basis.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: trade history for %s does not leave an open position", apperrors.ErrInternal, trade.Symbol)
		}

		next := domain.Position{
			PositionID: uuid.NewString(),
			AccountID:  trade.AccountID,
			OwnerID:    trade.OwnerID,
			Symbol:     trade.Symbol,
		}
		if existing != nil {
			next = *existing
		}
		next.Quantity = basis.Quantity
		next.AverageCost = basis.AverageCost
		next.TotalCost = basis.TotalCost
		next.Revalue(price, now)
		return &next, nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to record buy",
			slog.String("account_id", trade.AccountID),
			slog.String("symbol", trade.Symbol))
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues("buy").Inc()
	s.LogInfo(ctx, "Buy recorded",
		slog.String("account_id", trade.AccountID),
		slog.String("symbol", trade.Symbol),
		slog.String("quantity", trade.Quantity.String()),
		slog.String("position_quantity", pos.Quantity.String()))
	return pos, nil
}

func (s *positionService) RecordSell(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error) {
	trade, err := s.prepareTrade(ctx, userID, req, domain.Sell)
	if err != nil {
		return nil, err
	}

	// Fail fast without a quote round-trip; the locked check below is authoritative.
	current, err := s.positionRepo.FindPosition(ctx, trade.AccountID, trade.Symbol)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to load position", slog.String("symbol", trade.Symbol))
		return nil, err
	}
	if current == nil || current.Quantity.LessThan(trade.Quantity) {
		return nil, insufficientPosition(trade, current)
	}

	price := s.currentPrice(ctx, trade.Symbol, trade.Price)
	now := s.now()

	pos, err := s.positionRepo.RecordTrade(ctx, *trade, func(existing *domain.Position, _ []domain.Trade) (*domain.Position, error) {
		if existing == nil {
			return nil, insufficientPosition(trade, nil)
		}
		remaining, closed, err := accounting.ReduceForSell(existing.Quantity, trade.Quantity)
		if err != nil {
			return nil, err
		}
		if closed {
			return nil, nil
		}

		next := *existing
		next.Quantity = remaining
		next.TotalCost = remaining.Mul(next.AverageCost)
		next.Revalue(price, now)
		return &next, nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientPosition) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to record sell",
			slog.String("account_id", trade.AccountID),
			slog.String("symbol", trade.Symbol))
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues("sell").Inc()
	if pos == nil {
		s.LogInfo(ctx, "Sell closed position",
			slog.String("account_id", trade.AccountID),
			slog.String("symbol", trade.Symbol))
		return nil, nil
	}
	s.LogInfo(ctx, "Sell recorded",
		slog.String("account_id", trade.AccountID),
		slog.String("symbol", trade.Symbol),
		slog.String("position_quantity", pos.Quantity.String()))
	return pos, nil
}

func insufficientPosition(trade *domain.Trade, held *domain.Position) error {
	heldQty := decimal.Zero
	if held != nil {
		heldQty = held.Quantity
	}
	return fmt.Errorf("%w: cannot sell %s %s, holding %s",
		apperrors.ErrInsufficientPosition, trade.Quantity.String(), trade.Symbol, heldQty.String())
}

// prepareTrade validates the request and checks account ownership before any write.
func (s *positionService) prepareTrade(ctx context.Context, userID string, req dto.RecordTradeRequest, side domain.TradeSide) (*domain.Trade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	switch {
	case symbol == "":
		return nil, fmt.Errorf("%w: symbol is required", apperrors.ErrValidation)
	case !req.Quantity.IsPositive():
		return nil, fmt.Errorf("%w: quantity must be positive", apperrors.ErrValidation)
	case !req.Price.IsPositive():
		return nil, fmt.Errorf("%w: price must be positive", apperrors.ErrValidation)
	case req.Fees.IsNegative():
		return nil, fmt.Errorf("%w: fees must not be negative", apperrors.ErrValidation)
	case req.Date.IsZero():
		return nil, fmt.Errorf("%w: trade date is required", apperrors.ErrValidation)
	}

	account, err := s.AuthorizeAccount(ctx, userID, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, account.AccountID)
	}

	trade := &domain.Trade{
		TradeID:   uuid.NewString(),
		AccountID: account.AccountID,
		OwnerID:   userID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Fees:      req.Fees,
		Date:      req.Date,
		CreatedAt: s.now(),
	}
	trade.TotalAmount = trade.ComputeTotal()
	return trade, nil
}

// currentPrice asks the oracle for a quote and falls back to the trade price on any failure.
func (s *positionService) currentPrice(ctx context.Context, symbol string, fallback decimal.Decimal) decimal.Decimal {
	if s.oracle == nil {
		return fallback
	}
	quote, err := s.oracle.GetPrice(ctx, symbol)
	if err == nil && quote.Price.IsPositive() {
		return quote.Price
	}
	if err == nil {
		err = fmt.Errorf("%w: non-positive quote %s", apperrors.ErrPriceUnavailable, quote.Price.String())
	}
	metrics.PriceFallbacks.Inc()
	s.LogWarn(ctx, err, "Price lookup failed, valuing at trade price", slog.String("symbol", symbol))
	return fallback
}

func (s *positionService) RefreshStalePositions(ctx context.Context, maxAge time.Duration) (int, error) {
	return s.refresh(ctx, "", maxAge)
}

func (s *positionService) RefreshStalePositionsForUser(ctx context.Context, userID string, maxAge time.Duration) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	return s.refresh(ctx, userID, maxAge)
}

// refresh revalues stale positions, one quote per symbol. Symbols whose quote
// fails are skipped and retried on the next run.
func (s *positionService) refresh(ctx context.Context, ownerID string, maxAge time.Duration) (int, error) {
	if s.oracle == nil {
		s.LogDebug(ctx, "No price oracle configured, skipping refresh")
		return 0, nil
	}

	now := s.now()
	stale, err := s.positionRepo.ListStalePositions(ctx, ownerID, now.Add(-maxAge))
	if err != nil {
		s.LogError(ctx, err, "Failed to list stale positions")
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	bySymbol := make(map[string][]domain.Position)
	symbols := []string{}
	for _, p := range stale {
		if _, ok := bySymbol[p.Symbol]; !ok {
			symbols = append(symbols, p.Symbol)
		}
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	var refreshed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.refreshConcurrency)

	for _, symbol := range symbols {
		positions := bySymbol[symbol]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			quote, err := s.oracle.GetPrice(ctx, symbol)
			if err != nil || !quote.Price.IsPositive() {
				if err == nil {
					err = apperrors.ErrPriceUnavailable
				}
				s.LogWarn(ctx, err, "Skipping refresh for symbol", slog.String("symbol", symbol))
				return nil
			}
			for _, p := range positions {
				err := s.positionRepo.RevaluePosition(ctx, p.AccountID, p.Symbol, quote.Price, now)
				switch {
				case err == nil:
					refreshed.Add(1)
				case errors.Is(err, apperrors.ErrNotFound):
					// closed since the scan
				default:
					s.LogError(ctx, err, "Failed to revalue position",
						slog.String("account_id", p.AccountID),
						slog.String("symbol", p.Symbol))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	count := int(refreshed.Load())
	metrics.PositionsRefreshed.Add(float64(count))
	s.LogInfo(ctx, "Stale positions refreshed",
		slog.Int("stale", len(stale)),
		slog.Int("refreshed", count),
		slog.Int("symbols", len(symbols)))

	if err := ctx.Err(); err != nil {
		return count, err
	}
	return count, nil
}

func (s *positionService) ListPositions(ctx context.Context, userID, accountID string) ([]domain.Position, error) {
	var (
		positions []domain.Position
		err       error
	)
	if accountID != "" {
		if _, err := s.AuthorizeAccount(ctx, userID, accountID); err != nil {
			return nil, err
		}
		positions, err = s.positionRepo.ListPositionsByAccount(ctx, accountID)
	} else {
		if userID == "" {
			return nil, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
		}
		positions, err = s.positionRepo.ListPositionsByOwner(ctx, userID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to list positions", slog.String("account_id", accountID))
		return nil, err
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	return positions, nil
}
