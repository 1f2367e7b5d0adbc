package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/finledger/internal/core/domain"
)

func (s *Store) FindOrCreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := categoryKey(category.OwnerID, category.Name)
	if existing, ok := s.categories[key]; ok {
		return &existing, nil
	}
	s.categories[key] = category
	return &category, nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Category{}
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
