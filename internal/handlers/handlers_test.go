package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/SscSPs/finledger/internal/handlers"
	"github.com/SscSPs/finledger/internal/platform/config"
	"github.com/SscSPs/finledger/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const testUser = "user-1"

type HandlerTestSuite struct {
	suite.Suite
	router         *gin.Engine
	jwtSecret      string
	accountSvc     *MockAccountService
	transactionSvc *MockTransactionService
	positionSvc    *MockPositionService
	syncSvc        *MockSyncService
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.jwtSecret = "test-secret-key-that-is-long-enough"

	s.accountSvc = new(MockAccountService)
	s.transactionSvc = new(MockTransactionService)
	s.positionSvc = new(MockPositionService)
	s.syncSvc = new(MockSyncService)

	cfg := &config.Config{JWTSecret: s.jwtSecret, PriceMaxAge: time.Hour}
	container := &portssvc.ServiceContainer{
		Account:     s.accountSvc,
		Transaction: s.transactionSvc,
		Position:    s.positionSvc,
		Sync:        s.syncSvc,
	}
	rate, err := limiter.NewRateFromFormatted("1000-M")
	s.Require().NoError(err)
	handlers.RegisterRoutes(s.router, cfg, container, limiter.New(memory.NewStore(), rate))
}

func (s *HandlerTestSuite) TearDownTest() {
	s.accountSvc.AssertExpectations(s.T())
	s.transactionSvc.AssertExpectations(s.T())
	s.positionSvc.AssertExpectations(s.T())
	s.syncSvc.AssertExpectations(s.T())
}

// generateTestToken creates a signed JWT for userID.
func (s *HandlerTestSuite) generateTestToken(userID string) string {
	signed, err := utils.GenerateJWT(userID, s.jwtSecret, time.Hour, "finledger-test")
	s.Require().NoError(err)
	return signed
}

func (s *HandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.generateTestToken(testUser))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) TestHealthIsPublic() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestAPIRequiresToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestCreateAccount() {
	req := dto.CreateAccountRequest{Name: "Checking", AccountType: domain.Checking, CurrencyCode: "USD"}
	s.accountSvc.On("CreateAccount", mock.Anything, testUser, req).Return(&domain.Account{
		AccountID: "acc-1", OwnerID: testUser, Name: "Checking", AccountType: domain.Checking,
		CurrencyCode: "USD", Balance: decimal.Zero, IsActive: true,
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AccountResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("acc-1", resp.AccountID)
	s.False(resp.IsLinked)
}

func (s *HandlerTestSuite) TestCreateAccount_BindingErrors() {
	w := s.do(http.MethodPost, "/api/v1/accounts", map[string]string{"name": "x", "accountType": "BOGUS", "currencyCode": "USD"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestGetAccount_ForeignIsNotFound() {
	s.accountSvc.On("GetAccountByID", mock.Anything, testUser, "someone-elses").
		Return(nil, apperrors.ErrAccountNotFound).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/someone-elses", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), "Account not found")
}

func (s *HandlerTestSuite) TestLinkAndDeactivateAndReset() {
	link := dto.LinkAccountRequest{ExternalAccountID: "acc_ext", AccessToken: "token_abc"}
	s.accountSvc.On("LinkAccount", mock.Anything, testUser, "acc-1", link).Return(&domain.Account{
		AccountID: "acc-1", OwnerID: testUser, ExternalAccountID: "acc_ext", AccessToken: "token_abc", IsActive: true,
	}, nil).Once()
	s.accountSvc.On("DeactivateAccount", mock.Anything, testUser, "acc-1").Return(nil).Once()
	s.accountSvc.On("ResetAccount", mock.Anything, testUser, "acc-2").Return(nil).Once()

	w := s.do(http.MethodPut, "/api/v1/accounts/acc-1/link", link)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), "token_abc", "access token must never be returned")
	s.Contains(w.Body.String(), `"isLinked":true`)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/accounts/acc-1", nil).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/accounts/acc-2/reset", nil).Code)
}

func (s *HandlerTestSuite) TestAccountBalance() {
	s.accountSvc.On("VerifyBalance", mock.Anything, testUser, "acc-1").Return(&dto.AccountBalanceResponse{
		AccountID: "acc-1", Balance: decimal.NewFromInt(10), ComputedBalance: decimal.NewFromInt(10), Consistent: true,
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/acc-1/balance", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"consistent":true`)
}

func (s *HandlerTestSuite) TestListTransactions_Pagination() {
	next := "cursor-2"
	txns := []domain.Transaction{{TransactionID: "t1", AccountID: "acc-1", Amount: decimal.NewFromInt(5), Type: domain.Expense}}
	s.transactionSvc.On("ListTransactions", mock.Anything, testUser, "acc-1", 10, mock.MatchedBy(func(tok *string) bool {
		return tok != nil && *tok == "cursor-1"
	})).Return(txns, &next, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/acc-1/transactions?limit=10&nextToken=cursor-1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.ListTransactionsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Transactions, 1)
	s.Require().NotNil(resp.NextToken)
	s.Equal("cursor-2", *resp.NextToken)
}

func (s *HandlerTestSuite) TestListTransactions_LimitOutOfRange() {
	w := s.do(http.MethodGet, "/api/v1/accounts/acc-1/transactions?limit=1000", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestCreateTransaction_ErrorMapping() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation), http.StatusBadRequest},
		{"duplicate", fmt.Errorf("%w: dedup key", apperrors.ErrDuplicate), http.StatusConflict},
		{"foreign account", apperrors.ErrAccountNotFound, http.StatusNotFound},
		{"app error code", apperrors.NewAppError(http.StatusUnprocessableEntity, "nope", apperrors.ErrValidation), http.StatusUnprocessableEntity},
		{"internal", fmt.Errorf("pg: connection reset"), http.StatusInternalServerError},
	}

	body := map[string]any{
		"accountID":   "acc-1",
		"amount":      "12.50",
		"type":        "EXPENSE",
		"description": "Coffee",
		"date":        "2024-06-01T00:00:00Z",
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.transactionSvc.On("CreateTransaction", mock.Anything, testUser, mock.AnythingOfType("dto.CreateTransactionRequest")).
				Return(nil, tc.err).Once()
			w := s.do(http.MethodPost, "/api/v1/transactions", body)
			s.Equal(tc.status, w.Code, w.Body.String())
			if tc.status == http.StatusInternalServerError {
				s.NotContains(w.Body.String(), "pg:")
			}
		})
	}
}

func (s *HandlerTestSuite) TestCreateTransaction() {
	s.transactionSvc.On("CreateTransaction", mock.Anything, testUser, mock.MatchedBy(func(req dto.CreateTransactionRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("12.50")) && req.Type == domain.Expense
	})).Return(&domain.Transaction{
		TransactionID: "t1", AccountID: "acc-1", Amount: decimal.RequireFromString("12.50"),
		Type: domain.Expense, Source: domain.SourceManual, Status: domain.StatusPosted,
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"accountID":   "acc-1",
		"amount":      "12.50",
		"type":        "EXPENSE",
		"description": "Coffee",
		"date":        "2024-06-01T00:00:00Z",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"source":"MANUAL"`)
}

func (s *HandlerTestSuite) TestTrades() {
	s.positionSvc.On("RecordBuy", mock.Anything, testUser, mock.AnythingOfType("dto.RecordTradeRequest")).Return(&domain.Position{
		AccountID: "brk", Symbol: "AAPL", Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(100),
	}, nil).Once()
	s.positionSvc.On("RecordSell", mock.Anything, testUser, mock.AnythingOfType("dto.RecordTradeRequest")).Return(nil, nil).Once()

	body := map[string]any{"accountID": "brk", "symbol": "AAPL", "quantity": "10", "price": "100", "date": "2024-06-01T00:00:00Z"}

	w := s.do(http.MethodPost, "/api/v1/trades/buy", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var buy dto.RecordTradeResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &buy))
	s.False(buy.Closed)
	s.Require().NotNil(buy.Position)
	s.Equal("AAPL", buy.Position.Symbol)

	w = s.do(http.MethodPost, "/api/v1/trades/sell", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var sell dto.RecordTradeResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &sell))
	s.True(sell.Closed)
	s.Nil(sell.Position)
}

func (s *HandlerTestSuite) TestSell_InsufficientPositionIsConflict() {
	s.positionSvc.On("RecordSell", mock.Anything, testUser, mock.AnythingOfType("dto.RecordTradeRequest")).
		Return(nil, fmt.Errorf("%w: have 5, selling 10", apperrors.ErrInsufficientPosition)).Once()

	w := s.do(http.MethodPost, "/api/v1/trades/sell", map[string]any{
		"accountID": "brk", "symbol": "AAPL", "quantity": "10", "price": "100", "date": "2024-06-01T00:00:00Z",
	})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestPositions() {
	s.positionSvc.On("ListPositions", mock.Anything, testUser, "brk").Return([]domain.Position{{AccountID: "brk", Symbol: "MSFT"}}, nil).Once()
	s.positionSvc.On("RefreshStalePositionsForUser", mock.Anything, testUser, time.Hour).Return(2, nil).Once()
	s.positionSvc.On("RefreshStalePositionsForUser", mock.Anything, testUser, 30*time.Minute).Return(0, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/positions?accountID=brk", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "MSFT")

	w = s.do(http.MethodPost, "/api/v1/positions/refresh", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"refreshed":2}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/positions/refresh?maxAge=30m", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/positions/refresh?maxAge=soon", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestSyncAccount() {
	s.syncSvc.On("SyncAccount", mock.Anything, testUser, "acc-1", domain.DateRange{}).
		Return(&domain.ImportResult{Total: 3, Accepted: 3}, nil).Once()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.syncSvc.On("SyncAccount", mock.Anything, testUser, "acc-1", domain.DateRange{Start: start}).
		Return(&domain.ImportResult{}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/sync/accounts/acc-1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"accepted":3`)

	w = s.do(http.MethodPost, "/api/v1/sync/accounts/acc-1", map[string]any{"startDate": start})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *HandlerTestSuite) TestSyncAccount_AggregatorFailureIsBadGateway() {
	s.syncSvc.On("SyncAccount", mock.Anything, testUser, "acc-1", domain.DateRange{}).
		Return(nil, fmt.Errorf("%w: status 503", apperrors.ErrAggregator)).Once()

	w := s.do(http.MethodPost, "/api/v1/sync/accounts/acc-1", nil)
	s.Equal(http.StatusBadGateway, w.Code)
	s.NotContains(w.Body.String(), "503")
}

func (s *HandlerTestSuite) TestSyncAll_ReportsPerAccountOutcome() {
	s.syncSvc.On("SyncAll", mock.Anything, testUser, domain.DateRange{}).Return([]domain.AccountSyncResult{
		{AccountID: "a", Result: &domain.ImportResult{Accepted: 1}},
		{AccountID: "b", Error: "aggregator error: status 500"},
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/sync", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.SyncAllResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(1, resp.Succeeded)
	s.Equal(1, resp.Failed)
	s.Equal("a", resp.Results[0].AccountID)
}
