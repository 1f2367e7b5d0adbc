package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/SscSPs/finledger/internal/platform/metrics"
)

// ChainOracle asks each oracle in order and returns the first usable quote.
type ChainOracle struct {
	oracles []portssvc.PriceOracle
}

var _ portssvc.PriceOracle = (*ChainOracle)(nil)

// NewChainOracle creates a chain. Nil oracles are skipped.
func NewChainOracle(oracles ...portssvc.PriceOracle) *ChainOracle {
	chain := &ChainOracle{}
	for _, o := range oracles {
		if o != nil {
			chain.oracles = append(chain.oracles, o)
		}
	}
	return chain
}

func (c *ChainOracle) Name() string { return "chain" }

func (c *ChainOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, fmt.Errorf("%w: symbol is required", apperrors.ErrValidation)
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	var errs []error
	for _, oracle := range c.oracles {
		name := sourceName(oracle)
		quote, err := oracle.GetPrice(ctx, symbol)
		if err == nil {
			err = validQuote(quote)
		}
		if err == nil {
			metrics.PriceLookups.WithLabelValues(name, "ok").Inc()
			return quote, nil
		}

		metrics.PriceLookups.WithLabelValues(name, "error").Inc()
		logger.Debug("Price source failed", slog.String("source", name), slog.String("symbol", symbol), slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", name, err))

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: no price source configured", apperrors.ErrPriceUnavailable)
	}
	return domain.Quote{}, fmt.Errorf("%w: %s: %w", apperrors.ErrPriceUnavailable, symbol, errors.Join(errs...))
}
