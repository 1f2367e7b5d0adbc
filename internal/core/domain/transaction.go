package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the cash effect of a transaction.
type TransactionType string

const (
	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"
)

// TransactionStatus tracks whether the bank has settled a transaction.
type TransactionStatus string

const (
	StatusPosted  TransactionStatus = "POSTED"
	StatusPending TransactionStatus = "PENDING"
)

// TransactionSource records how a transaction entered the ledger.
type TransactionSource string

const (
	SourceManual TransactionSource = "MANUAL"
	SourceImport TransactionSource = "IMPORT"
	SourceSync   TransactionSource = "SYNC"
)

// Transaction is a single cash movement on one account.
// Amount is always non-negative; Type carries the direction.
type Transaction struct {
	TransactionID string            `json:"transactionID"`
	AccountID     string            `json:"accountID"`
	OwnerID       string            `json:"ownerID"`
	CategoryID    *string           `json:"categoryID,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Type          TransactionType   `json:"type"`
	Description   string            `json:"description"`
	Date          time.Time         `json:"date"`
	Merchant      string            `json:"merchant,omitempty"`
	DedupKey      *string           `json:"dedupKey,omitempty"`
	Source        TransactionSource `json:"source"`
	Status        TransactionStatus `json:"status"`
	IsRecurring   bool              `json:"isRecurring"`
	Notes         string            `json:"notes,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	AuditFields
}

// SignedEffect is the change this transaction makes to its account balance.
// Transfers are recorded but never move the balance.
func (t *Transaction) SignedEffect() decimal.Decimal {
	switch t.Type {
	case Income:
		return t.Amount
	case Expense:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// IsPending reports whether the bank has not settled the transaction yet.
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// AmountScale is the number of decimal places a stored cash amount keeps.
const AmountScale = 4

// Fingerprint is the secondary duplicate guard used when an aggregator rotates
// record ids: same account, description, calendar day and absolute amount.
type Fingerprint struct {
	AccountID   string
	Description string
	Date        time.Time
	Amount      decimal.Decimal
}

// FingerprintOf builds the duplicate-guard key for a transaction.
func FingerprintOf(t Transaction) Fingerprint {
	return Fingerprint{
		AccountID:   t.AccountID,
		Description: t.Description,
		Date:        DayOf(t.Date),
		Amount:      t.Amount.Abs().Round(AmountScale),
	}
}

// Matches reports whether two fingerprints identify the same cash movement.
func (f Fingerprint) Matches(o Fingerprint) bool {
	return f.AccountID == o.AccountID &&
		f.Description == o.Description &&
		f.Date.Equal(o.Date) &&
		f.Amount.Equal(o.Amount)
}

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
