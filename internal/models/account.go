package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Account is the row stored in the accounts table.
type Account struct {
	AccountID         string          `db:"account_id"`
	OwnerID           string          `db:"owner_id"`
	Name              string          `db:"name"`
	AccountType       string          `db:"account_type"`
	CurrencyCode      string          `db:"currency_code"`
	Balance           decimal.Decimal `db:"balance"`
	InstitutionName   sql.NullString  `db:"institution_name"`
	ExternalAccountID sql.NullString  `db:"external_account_id"`
	AccessToken       sql.NullString  `db:"access_token"`
	IsActive          bool            `db:"is_active"`
	AuditFields
}
