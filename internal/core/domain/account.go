package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType describes what kind of real-world account this is.
type AccountType string

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
	Investment AccountType = "INVESTMENT"
	Cash       AccountType = "CASH"
	Loan       AccountType = "LOAN"
	OtherType  AccountType = "OTHER"
)

// Account represents a user's financial account.
// Balance is signed; a negative balance on a credit card or loan is debt.
type Account struct {
	AccountID         string          `json:"accountID"`
	OwnerID           string          `json:"ownerID"`
	Name              string          `json:"name"`
	AccountType       AccountType     `json:"accountType"`
	CurrencyCode      string          `json:"currencyCode"`
	Balance           decimal.Decimal `json:"balance"`
	InstitutionName   string          `json:"institutionName"`
	ExternalAccountID string          `json:"externalAccountID"` // aggregator-side account id
	AccessToken       string          `json:"-"`                 // opaque aggregator credential
	IsActive          bool            `json:"isActive"`
	AuditFields
}

// IsLinked reports whether the account is fed by the bank aggregator.
func (a *Account) IsLinked() bool {
	return a.AccessToken != "" && a.ExternalAccountID != ""
}

// OwnedBy reports whether userID owns the account.
func (a *Account) OwnedBy(userID string) bool {
	return userID != "" && a.OwnerID == userID
}
