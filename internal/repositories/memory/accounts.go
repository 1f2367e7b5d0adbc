package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	s.accounts[account.AccountID] = account
	return nil
}

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

func (s *Store) ListAccountsByOwner(_ context.Context, ownerID string, includeInactive bool) ([]domain.Account, error) {
	return s.filterAccounts(func(a domain.Account) bool {
		return a.OwnerID == ownerID && (includeInactive || a.IsActive)
	}), nil
}

func (s *Store) ListLinkedAccounts(_ context.Context, ownerID string) ([]domain.Account, error) {
	return s.filterAccounts(func(a domain.Account) bool {
		return a.OwnerID == ownerID && a.IsActive && a.IsLinked()
	}), nil
}

func (s *Store) ListOwnersWithLinkedAccounts(_ context.Context) ([]string, error) {
	linked := s.filterAccounts(func(a domain.Account) bool {
		return a.IsActive && a.IsLinked()
	})

	seen := make(map[string]struct{})
	owners := []string{}
	for _, a := range linked {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}
		seen[a.OwnerID] = struct{}{}
		owners = append(owners, a.OwnerID)
	}
	sort.Strings(owners)
	return owners, nil
}

// filterAccounts returns matching accounts ordered by name then id, the same order the SQL store uses.
func (s *Store) filterAccounts(match func(domain.Account) bool) []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Account{}
	for _, a := range s.accounts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

func (s *Store) UpdateAccountLink(_ context.Context, accountID, externalAccountID, accessToken, institution string, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	acc.ExternalAccountID = externalAccountID
	acc.AccessToken = accessToken
	if institution != "" {
		acc.InstitutionName = institution
	}
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) DeactivateAccount(_ context.Context, accountID string, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	acc.IsActive = false
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) ResetAccount(_ context.Context, accountID string, userID string, now time.Time) error {
	unlock := s.lockAccount(accountID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for id, txn := range s.transactions {
		if txn.AccountID == accountID {
			delete(s.transactions, id)
		}
	}
	for key := range s.trades {
		if key.AccountID == accountID {
			delete(s.trades, key)
		}
	}
	for key := range s.positions {
		if key.AccountID == accountID {
			delete(s.positions, key)
		}
	}
	acc.Balance = decimal.Zero
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return nil
}
