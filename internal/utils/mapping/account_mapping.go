package mapping

import (
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:         d.AccountID,
		OwnerID:           d.OwnerID,
		Name:              d.Name,
		AccountType:       string(d.AccountType),
		CurrencyCode:      d.CurrencyCode,
		Balance:           d.Balance,
		InstitutionName:   toNullString(d.InstitutionName),
		ExternalAccountID: toNullString(d.ExternalAccountID),
		AccessToken:       toNullString(d.AccessToken),
		IsActive:          d.IsActive,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:         m.AccountID,
		OwnerID:           m.OwnerID,
		Name:              m.Name,
		AccountType:       domain.AccountType(m.AccountType),
		CurrencyCode:      m.CurrencyCode,
		Balance:           m.Balance,
		InstitutionName:   m.InstitutionName.String,
		ExternalAccountID: m.ExternalAccountID.String,
		AccessToken:       m.AccessToken.String,
		IsActive:          m.IsActive,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}
