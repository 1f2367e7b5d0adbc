package dto

import (
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is a manually entered cash movement.
// Amount is unsigned; Type carries the direction.
type CreateTransactionRequest struct {
	AccountID   string                   `json:"accountID" binding:"required"`
	Amount      decimal.Decimal          `json:"amount"`
	Type        domain.TransactionType   `json:"type" binding:"required,oneof=INCOME EXPENSE TRANSFER"`
	Description string                   `json:"description" binding:"required,max=500"`
	Date        time.Time                `json:"date" binding:"required"`
	CategoryID  *string                  `json:"categoryID"`
	Merchant    string                   `json:"merchant" binding:"max=120"`
	Notes       string                   `json:"notes"`
	IsRecurring bool                     `json:"isRecurring"`
	Status      domain.TransactionStatus `json:"status" binding:"omitempty,oneof=POSTED PENDING"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string                   `json:"transactionID"`
	AccountID     string                   `json:"accountID"`
	CategoryID    *string                  `json:"categoryID,omitempty"`
	Amount        decimal.Decimal          `json:"amount"`
	Type          domain.TransactionType   `json:"type"`
	Description   string                   `json:"description"`
	Date          time.Time                `json:"date"`
	Merchant      string                   `json:"merchant,omitempty"`
	Source        domain.TransactionSource `json:"source"`
	Status        domain.TransactionStatus `json:"status"`
	IsRecurring   bool                     `json:"isRecurring"`
	Notes         string                   `json:"notes,omitempty"`
	Metadata      map[string]string        `json:"metadata,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.TransactionID,
		AccountID:     txn.AccountID,
		CategoryID:    txn.CategoryID,
		Amount:        txn.Amount,
		Type:          txn.Type,
		Description:   txn.Description,
		Date:          txn.Date,
		Merchant:      txn.Merchant,
		Source:        txn.Source,
		Status:        txn.Status,
		IsRecurring:   txn.IsRecurring,
		Notes:         txn.Notes,
		Metadata:      txn.Metadata,
		CreatedAt:     txn.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}

// ListTransactionsParams defines query parameters for listing transactions with token-based pagination.
type ListTransactionsParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}
