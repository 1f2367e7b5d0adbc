package dto

import (
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Name            string             `json:"name" binding:"required,max=120"`
	AccountType     domain.AccountType `json:"accountType" binding:"required,oneof=CHECKING SAVINGS CREDIT_CARD INVESTMENT CASH LOAN OTHER"`
	CurrencyCode    string             `json:"currencyCode" binding:"required,len=3"`
	InstitutionName string             `json:"institutionName"` // Optional
}

// LinkAccountRequest attaches a bank aggregator credential to an existing account.
type LinkAccountRequest struct {
	ExternalAccountID string `json:"externalAccountID" binding:"required"`
	AccessToken       string `json:"accessToken" binding:"required"`
	InstitutionName   string `json:"institutionName"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account without the aggregator credential.
type AccountResponse struct {
	AccountID         string             `json:"accountID"`
	Name              string             `json:"name"`
	AccountType       domain.AccountType `json:"accountType"`
	CurrencyCode      string             `json:"currencyCode"`
	Balance           decimal.Decimal    `json:"balance"`
	InstitutionName   string             `json:"institutionName"`
	ExternalAccountID string             `json:"externalAccountID,omitempty"`
	IsLinked          bool               `json:"isLinked"`
	IsActive          bool               `json:"isActive"`
	CreatedAt         time.Time          `json:"createdAt"`
	LastUpdatedAt     time.Time          `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:         acc.AccountID,
		Name:              acc.Name,
		AccountType:       acc.AccountType,
		CurrencyCode:      acc.CurrencyCode,
		Balance:           acc.Balance,
		InstitutionName:   acc.InstitutionName,
		ExternalAccountID: acc.ExternalAccountID,
		IsLinked:          acc.IsLinked(),
		IsActive:          acc.IsActive,
		CreatedAt:         acc.CreatedAt,
		LastUpdatedAt:     acc.LastUpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}

// ListAccountsParams defines query parameters for listing accounts.
type ListAccountsParams struct {
	IncludeInactive bool `form:"includeInactive"`
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// AccountBalanceResponse compares the stored running balance with the sum of
// the account's transaction effects.
type AccountBalanceResponse struct {
	AccountID       string          `json:"accountID"`
	Balance         decimal.Decimal `json:"balance"`
	ComputedBalance decimal.Decimal `json:"computedBalance"`
	Consistent      bool            `json:"consistent"`
}
