package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"github.com/redis/go-redis/v9"
)

// CachedOracle is a Redis read-through cache in front of another oracle.
// Cache failures are logged and never fail a lookup.
type CachedOracle struct {
	next portssvc.PriceOracle
	rdb  redis.Cmdable
	ttl  time.Duration
}

var _ portssvc.PriceOracle = (*CachedOracle)(nil)

// NewCachedOracle wraps next. Quotes live in Redis for ttl.
func NewCachedOracle(next portssvc.PriceOracle, rdb redis.Cmdable, ttl time.Duration) *CachedOracle {
	return &CachedOracle{next: next, rdb: rdb, ttl: ttl}
}

func (o *CachedOracle) Name() string { return "redis" }

func quoteKey(symbol string) string {
	return "finledger:quote:" + symbol
}

func (o *CachedOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	logger := middleware.GetLoggerFromCtx(ctx)

	data, err := o.rdb.Get(ctx, quoteKey(symbol)).Bytes()
	switch {
	case err == nil:
		var q domain.Quote
		if json.Unmarshal(data, &q) == nil && q.Price.IsPositive() {
			metrics.PriceLookups.WithLabelValues(o.Name(), "hit").Inc()
			return q, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn("Quote cache read failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
	}
	metrics.PriceLookups.WithLabelValues(o.Name(), "miss").Inc()

	q, err := o.next.GetPrice(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := o.rdb.Set(ctx, quoteKey(symbol), data, o.ttl).Err(); err != nil {
			logger.Warn("Quote cache write failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		}
	}
	return q, nil
}
