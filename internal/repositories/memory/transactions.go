package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/SscSPs/finledger/internal/utils/accounting"
	"github.com/SscSPs/finledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

func (s *Store) PostTransaction(_ context.Context, txn domain.Transaction, delta decimal.Decimal, opts portsrepo.PostOptions) error {
	unlock := s.lockAccount(txn.AccountID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[txn.AccountID]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	if _, exists := s.transactions[txn.TransactionID]; exists {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
	}
	if txn.DedupKey != nil {
		if _, found := s.findByDedupKeyLocked(txn.AccountID, *txn.DedupKey); found {
			return fmt.Errorf("%w: dedup key %s", apperrors.ErrDuplicate, *txn.DedupKey)
		}
	}
	if opts.CheckFingerprint {
		if _, found := s.findByFingerprintLocked(domain.FingerprintOf(txn)); found {
			return fmt.Errorf("%w: matching transaction on %s", apperrors.ErrDuplicate, domain.DayOf(txn.Date).Format(time.DateOnly))
		}
	}

	txn.Metadata = cloneMetadata(txn.Metadata)
	s.transactions[txn.TransactionID] = txn

	acc.Balance = acc.Balance.Add(delta)
	acc.LastUpdatedAt = txn.CreatedAt
	acc.LastUpdatedBy = txn.CreatedBy
	s.accounts[txn.AccountID] = acc
	return nil
}

func (s *Store) FindTransactionByDedupKey(_ context.Context, accountID, dedupKey string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.findByDedupKeyLocked(accountID, dedupKey)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (s *Store) FindTransactionByFingerprint(_ context.Context, fp domain.Fingerprint) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.findByFingerprintLocked(fp)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (s *Store) findByDedupKeyLocked(accountID, dedupKey string) (domain.Transaction, bool) {
	for _, txn := range s.transactions {
		if txn.AccountID == accountID && txn.DedupKey != nil && *txn.DedupKey == dedupKey {
			return txn, true
		}
	}
	return domain.Transaction{}, false
}

func (s *Store) findByFingerprintLocked(fp domain.Fingerprint) (domain.Transaction, bool) {
	for _, txn := range s.transactions {
		if domain.FingerprintOf(txn).Matches(fp) {
			return txn, true
		}
	}
	return domain.Transaction{}, false
}

func (s *Store) MarkTransactionPosted(_ context.Context, transactionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	txn.Status = domain.StatusPosted
	txn.LastUpdatedAt = now
	s.transactions[transactionID] = txn
	return nil
}

func (s *Store) ListTransactionsByAccountID(_ context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	var cursorDate, cursorCreated time.Time
	hasCursor := nextToken != nil && *nextToken != ""
	if hasCursor {
		var err error
		cursorDate, cursorCreated, err = pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		}
	}

	s.mu.RLock()
	matched := []domain.Transaction{}
	for _, txn := range s.transactions {
		if txn.AccountID != accountID {
			continue
		}
		if hasCursor && !pagination.After(txn.Date, txn.CreatedAt, cursorDate, cursorCreated) {
			continue
		}
		matched = append(matched, txn)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return pagination.After(matched[j].Date, matched[j].CreatedAt, matched[i].Date, matched[i].CreatedAt)
	})

	var next *string
	if len(matched) > limit {
		last := matched[limit-1]
		token := pagination.EncodeToken(last.Date, last.CreatedAt)
		next = &token
		matched = matched[:limit]
	}
	return matched, next, nil
}

func (s *Store) SumSignedEffects(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := []domain.Transaction{}
	for _, txn := range s.transactions {
		if txn.AccountID == accountID {
			txns = append(txns, txn)
		}
	}
	return accounting.SumSignedEffects(txns), nil
}
