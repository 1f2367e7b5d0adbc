package mapping

import (
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/SscSPs/finledger/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction.
// A nil metadata map is stored as an empty JSON object.
func ToModelTransaction(d domain.Transaction) models.Transaction {
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return models.Transaction{
		TransactionID:   d.TransactionID,
		AccountID:       d.AccountID,
		OwnerID:         d.OwnerID,
		CategoryID:      toNullStringPtr(d.CategoryID),
		Amount:          d.Amount,
		TransactionType: string(d.Type),
		Description:     d.Description,
		TransactionDate: d.Date,
		Merchant:        d.Merchant,
		DedupKey:        toNullStringPtr(d.DedupKey),
		Source:          string(d.Source),
		Status:          string(d.Status),
		IsRecurring:     d.IsRecurring,
		Notes:           d.Notes,
		Metadata:        metadata,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		OwnerID:       m.OwnerID,
		CategoryID:    fromNullStringPtr(m.CategoryID),
		Amount:        m.Amount,
		Type:          domain.TransactionType(m.TransactionType),
		Description:   m.Description,
		Date:          m.TransactionDate,
		Merchant:      m.Merchant,
		DedupKey:      fromNullStringPtr(m.DedupKey),
		Source:        domain.TransactionSource(m.Source),
		Status:        domain.TransactionStatus(m.Status),
		IsRecurring:   m.IsRecurring,
		Notes:         m.Notes,
		Metadata:      m.Metadata,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}
