package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

func (s *Store) RecordTrade(_ context.Context, trade domain.Trade, mutate portsrepo.PositionMutation) (*domain.Position, error) {
	unlock := s.lockAccount(trade.AccountID)
	defer unlock()

	key := domain.PositionKey{AccountID: trade.AccountID, Symbol: trade.Symbol}

	s.mu.RLock()
	_, accountExists := s.accounts[trade.AccountID]
	var existing *domain.Position
	if p, ok := s.positions[key]; ok {
		existing = &p
	}
	history := make([]domain.Trade, 0, len(s.trades[key])+1)
	history = append(history, s.trades[key]...)
	s.mu.RUnlock()

	if !accountExists {
		return nil, apperrors.ErrAccountNotFound
	}

	history = append(history, trade)
	next, err := mutate(existing, history)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[key] = append(s.trades[key], trade)
	if next == nil {
		delete(s.positions, key)
		return nil, nil
	}
	s.positions[key] = *next
	out := *next
	return &out, nil
}

func (s *Store) FindPosition(_ context.Context, accountID, symbol string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[domain.PositionKey{AccountID: accountID, Symbol: symbol}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPositionsByAccount(_ context.Context, accountID string) ([]domain.Position, error) {
	return s.filterPositions(func(p domain.Position) bool { return p.AccountID == accountID }), nil
}

func (s *Store) ListPositionsByOwner(_ context.Context, ownerID string) ([]domain.Position, error) {
	return s.filterPositions(func(p domain.Position) bool { return p.OwnerID == ownerID }), nil
}

func (s *Store) ListStalePositions(_ context.Context, ownerID string, cutoff time.Time) ([]domain.Position, error) {
	return s.filterPositions(func(p domain.Position) bool {
		return (ownerID == "" || p.OwnerID == ownerID) && p.LastUpdated.Before(cutoff)
	}), nil
}

func (s *Store) filterPositions(match func(domain.Position) bool) []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Position{}
	for _, p := range s.positions {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (s *Store) ListTrades(_ context.Context, accountID, symbol string) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[domain.PositionKey{AccountID: accountID, Symbol: symbol}]
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	return out, nil
}

func (s *Store) RevaluePosition(_ context.Context, accountID, symbol string, price decimal.Decimal, at time.Time) error {
	unlock := s.lockAccount(accountID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.PositionKey{AccountID: accountID, Symbol: symbol}
	p, ok := s.positions[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Revalue(price, at)
	s.positions[key] = p
	return nil
}
