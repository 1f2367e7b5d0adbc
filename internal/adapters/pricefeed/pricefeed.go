// Package pricefeed provides market price oracles for position valuation.
package pricefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Source is implemented by oracles that can name themselves for metrics and logs.
type Source interface {
	Name() string
}

func sourceName(oracle any) string {
	if s, ok := oracle.(Source); ok {
		return s.Name()
	}
	return "unknown"
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// getJSON performs a GET and returns the body of a 2xx response.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", apperrors.ErrPriceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrPriceUnavailable, resp.StatusCode)
	}
	return body, nil
}

func validQuote(q domain.Quote) error {
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: non-positive price %s for %s", apperrors.ErrPriceUnavailable, q.Price.String(), q.Symbol)
	}
	return nil
}
