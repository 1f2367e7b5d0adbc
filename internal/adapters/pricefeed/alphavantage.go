package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// AlphaVantageOracle quotes symbols with the GLOBAL_QUOTE endpoint.
type AlphaVantageOracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

var _ portssvc.PriceOracle = (*AlphaVantageOracle)(nil)

// NewAlphaVantageOracle creates the oracle. baseURL defaults to the public API.
func NewAlphaVantageOracle(baseURL, apiKey string, timeout time.Duration) *AlphaVantageOracle {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &AlphaVantageOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		now:     time.Now,
	}
}

func (o *AlphaVantageOracle) Name() string { return "alphavantage" }

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

func (o *AlphaVantageOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", o.apiKey)

	body, err := getJSON(ctx, o.client, o.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return domain.Quote{}, err
	}

	var payload globalQuoteResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: invalid alphavantage response: %v", apperrors.ErrPriceUnavailable, err)
	}
	if payload.GlobalQuote.Price == "" {
		// throttled and unknown symbols both come back as 200 without a quote
		reason := payload.Note
		if reason == "" {
			reason = payload.Information
		}
		if reason == "" {
			reason = "no quote"
		}
		return domain.Quote{}, fmt.Errorf("%w: alphavantage %s: %s", apperrors.ErrPriceUnavailable, symbol, reason)
	}

	price, err := decimal.NewFromString(payload.GlobalQuote.Price)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: invalid alphavantage price %q", apperrors.ErrPriceUnavailable, payload.GlobalQuote.Price)
	}
	quote := domain.Quote{Symbol: symbol, Price: price, LastUpdated: o.now().UTC(), Source: o.Name()}
	if err := validQuote(quote); err != nil {
		return domain.Quote{}, err
	}
	return quote, nil
}
