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

// YahooOracle reads the regular market price from the v8 chart endpoint. It
// needs no API key.
type YahooOracle struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

var _ portssvc.PriceOracle = (*YahooOracle)(nil)

// NewYahooOracle creates the oracle. baseURL defaults to query1.finance.yahoo.com.
func NewYahooOracle(baseURL string, timeout time.Duration) *YahooOracle {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
		now:     time.Now,
	}
}

func (o *YahooOracle) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string      `json:"symbol"`
				RegularMarketPrice json.Number `json:"regularMarketPrice"`
				PreviousClose      json.Number `json:"previousClose"`
				RegularMarketTime  int64       `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (o *YahooOracle) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", o.baseURL, url.PathEscape(symbol))

	body, err := getJSON(ctx, o.client, endpoint, http.Header{"User-Agent": []string{"Mozilla/5.0"}})
	if err != nil {
		return domain.Quote{}, err
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: invalid yahoo response: %v", apperrors.ErrPriceUnavailable, err)
	}
	if payload.Chart.Error != nil {
		return domain.Quote{}, fmt.Errorf("%w: yahoo %s: %s", apperrors.ErrPriceUnavailable, symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: yahoo returned no result for %s", apperrors.ErrPriceUnavailable, symbol)
	}

	meta := payload.Chart.Result[0].Meta
	raw := meta.RegularMarketPrice
	if raw == "" {
		raw = meta.PreviousClose
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: yahoo returned no price for %s", apperrors.ErrPriceUnavailable, symbol)
	}

	updated := o.now().UTC()
	if meta.RegularMarketTime > 0 {
		updated = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	quote := domain.Quote{Symbol: symbol, Price: price, LastUpdated: updated, Source: o.Name()}
	if err := validQuote(quote); err != nil {
		return domain.Quote{}, err
	}
	return quote, nil
}
