package pricefeed

import (
	"context"
	"fmt"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimitedOracle keeps a free-tier feed under its request quota. Calls over
// the limit fail fast with apperrors.ErrPriceUnavailable so the chain can move
// on to the next source.
type RateLimitedOracle struct {
	next    portssvc.PriceOracle
	limiter *limiter.Limiter
	key     string
}

var _ portssvc.PriceOracle = (*RateLimitedOracle)(nil)

// NewRateLimitedOracle wraps next with a limiter using a ulule formatted rate such as "5-M".
func NewRateLimitedOracle(next portssvc.PriceOracle, formattedRate string) (*RateLimitedOracle, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("invalid price rate limit %q: %w", formattedRate, err)
	}
	return &RateLimitedOracle{
		next:    next,
		limiter: limiter.New(memory.NewStore(), rate),
		key:     "price:" + sourceName(next),
	}, nil
}

func (o *RateLimitedOracle) Name() string { return sourceName(o.next) }

func (o *RateLimitedOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	lctx, err := o.limiter.Get(ctx, o.key)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: rate limiter: %v", apperrors.ErrPriceUnavailable, err)
	}
	if lctx.Reached {
		return domain.Quote{}, fmt.Errorf("%w: %s rate limit of %d reached", apperrors.ErrPriceUnavailable, o.Name(), lctx.Limit)
	}
	return o.next.GetPrice(ctx, symbol)
}
