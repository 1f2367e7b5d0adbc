// Package aggregator talks to the bank aggregator that feeds linked accounts.
package aggregator

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
)

const maxErrorBody = 4 << 10

// Config configures the Teller client.
type Config struct {
	BaseURL     string
	Certificate string // PEM client certificate, optional
	PrivateKey  string // PEM key for Certificate
	Timeout     time.Duration
}

// TellerClient lists transactions of linked accounts over the Teller REST API.
type TellerClient struct {
	baseURL string
	client  *http.Client
}

var _ portssvc.AggregatorClient = (*TellerClient)(nil)

// NewTellerClient builds a client. When both Certificate and PrivateKey are set
// every request presents them as an mTLS client certificate.
func NewTellerClient(cfg Config) (*TellerClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("teller base URL cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	cert, key := normalizePEM(cfg.Certificate), normalizePEM(cfg.PrivateKey)
	if cert != "" || key != "" {
		if cert == "" || key == "" {
			return nil, fmt.Errorf("teller certificate and private key must be set together")
		}
		pair, err := tls.X509KeyPair([]byte(cert), []byte(key))
		if err != nil {
			return nil, fmt.Errorf("failed to load teller client certificate: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{pair},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &TellerClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}, nil
}

// normalizePEM accepts PEM blocks whose newlines were escaped as \n, which is
// how multi-line values usually survive environment variables.
func normalizePEM(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
}

// ListTransactions fetches the account's transactions within dateRange.
// Zero range bounds are omitted from the query.
func (c *TellerClient) ListTransactions(ctx context.Context, account domain.Account, dateRange domain.DateRange) ([]domain.ExternalRecord, error) {
	if !account.IsLinked() {
		return nil, fmt.Errorf("%w: account %s has no aggregator credentials", apperrors.ErrValidation, account.AccountID)
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/transactions", c.baseURL, url.PathEscape(account.ExternalAccountID))
	query := url.Values{}
	if !dateRange.Start.IsZero() {
		query.Set("start_date", dateRange.Start.Format(time.DateOnly))
	}
	if !dateRange.End.IsZero() {
		query.Set("end_date", dateRange.End.Format(time.DateOnly))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregator request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(strings.TrimSpace(account.AccessToken) + ":"))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Accept", "application/json")

	logger := middleware.GetLoggerFromCtx(ctx)
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrAggregator, err)
	}
	defer resp.Body.Close()

	logger.Debug("Aggregator responded",
		slog.String("account_id", account.AccountID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", apperrors.ErrAggregator, resp.StatusCode, errorMessage(body))
	}

	var records []domain.ExternalRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: invalid transactions response: %v", apperrors.ErrAggregator, err)
	}
	if records == nil {
		records = []domain.ExternalRecord{}
	}
	return records, nil
}

// errorMessage extracts {"error":{"message":...}} when present.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}
