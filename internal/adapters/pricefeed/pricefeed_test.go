package pricefeed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/finledger/internal/adapters/pricefeed"
	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaVantageOracle_GetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "demo-key", r.URL.Query().Get("apikey"))

		switch r.URL.Query().Get("symbol") {
		case "IBM":
			_, _ = w.Write([]byte(`{"Global Quote":{"01. symbol":"IBM","05. price":"187.4200"}}`))
		default:
			_, _ = w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`))
		}
	}))
	defer server.Close()

	oracle := pricefeed.NewAlphaVantageOracle(server.URL, "demo-key", time.Second)

	q, err := oracle.GetPrice(context.Background(), "ibm")
	require.NoError(t, err)
	assert.Equal(t, "IBM", q.Symbol)
	assert.True(t, decimal.RequireFromString("187.42").Equal(q.Price))
	assert.Equal(t, "alphavantage", q.Source)

	_, err = oracle.GetPrice(context.Background(), "MSFT")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
	assert.Contains(t, err.Error(), "call frequency")
}

func TestYahooOracle_GetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/v8/finance/chart/AAPL":
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":189.84,"previousClose":188.1,"regularMarketTime":1717000000}}],"error":null}}`))
		case "/v8/finance/chart/OLD":
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"OLD","previousClose":12.5}}],"error":null}}`))
		case "/v8/finance/chart/NOPE":
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	oracle := pricefeed.NewYahooOracle(server.URL, time.Second)

	q, err := oracle.GetPrice(context.Background(), "aapl")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("189.84").Equal(q.Price))
	assert.Equal(t, time.Unix(1717000000, 0).UTC(), q.LastUpdated)

	q, err = oracle.GetPrice(context.Background(), "OLD")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(q.Price))

	_, err = oracle.GetPrice(context.Background(), "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)

	_, err = oracle.GetPrice(context.Background(), "BOOM")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
}

type stubOracle struct {
	name  string
	price int64
	err   error
	calls atomic.Int32
}

func (s *stubOracle) Name() string { return s.name }

func (s *stubOracle) GetPrice(_ context.Context, symbol string) (domain.Quote, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return domain.Quote{Symbol: symbol, Price: decimal.NewFromInt(s.price), Source: s.name}, nil
}

func TestChainOracle_FallsThroughInOrder(t *testing.T) {
	first := &stubOracle{name: "first", err: errors.New("down")}
	zero := &stubOracle{name: "zero", price: 0}
	last := &stubOracle{name: "last", price: 42}

	chain := pricefeed.NewChainOracle(first, nil, zero, last)
	q, err := chain.GetPrice(context.Background(), " spy ")
	require.NoError(t, err)
	assert.Equal(t, "last", q.Source)
	assert.Equal(t, "SPY", q.Symbol)
	assert.EqualValues(t, 1, first.calls.Load())
	assert.EqualValues(t, 1, zero.calls.Load())
}

func TestChainOracle_AllFail(t *testing.T) {
	chain := pricefeed.NewChainOracle(&stubOracle{name: "a", err: errors.New("down")}, &stubOracle{name: "b", err: errors.New("also down")})

	_, err := chain.GetPrice(context.Background(), "SPY")
	require.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
	assert.Contains(t, err.Error(), "also down")

	_, err = pricefeed.NewChainOracle().GetPrice(context.Background(), "SPY")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)

	_, err = chain.GetPrice(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRateLimitedOracle_FailsFastOverLimit(t *testing.T) {
	inner := &stubOracle{name: "feed", price: 10}
	limited, err := pricefeed.NewRateLimitedOracle(inner, "2-M")
	require.NoError(t, err)
	assert.Equal(t, "feed", limited.Name())

	for i := 0; i < 2; i++ {
		_, err := limited.GetPrice(context.Background(), "SPY")
		require.NoError(t, err)
	}
	_, err = limited.GetPrice(context.Background(), "SPY")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
	assert.EqualValues(t, 2, inner.calls.Load())

	_, err = pricefeed.NewRateLimitedOracle(inner, "lots")
	assert.Error(t, err)
}

func TestCachedOracle_UnavailableRedisFallsThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	inner := &stubOracle{name: "feed", price: 7}
	cached := pricefeed.NewCachedOracle(inner, rdb, time.Minute)

	for i := 0; i < 2; i++ {
		q, err := cached.GetPrice(context.Background(), "spy")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(q.Price))
	}
	assert.EqualValues(t, 2, inner.calls.Load())
}
