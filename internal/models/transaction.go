package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the row stored in the transactions table.
// Amount is unsigned; TransactionType carries the direction.
type Transaction struct {
	TransactionID   string            `db:"transaction_id"`
	AccountID       string            `db:"account_id"`
	OwnerID         string            `db:"owner_id"`
	CategoryID      sql.NullString    `db:"category_id"`
	Amount          decimal.Decimal   `db:"amount"`
	TransactionType string            `db:"transaction_type"`
	Description     string            `db:"description"`
	TransactionDate time.Time         `db:"transaction_date"`
	Merchant        string            `db:"merchant"`
	DedupKey        sql.NullString    `db:"dedup_key"`
	Source          string            `db:"source"`
	Status          string            `db:"status"`
	IsRecurring     bool              `db:"is_recurring"`
	Notes           string            `db:"notes"`
	Metadata        map[string]string `db:"metadata"` // JSONB
	AuditFields
}
