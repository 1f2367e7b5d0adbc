package repositories

import (
	"context"

	"github.com/SscSPs/finledger/internal/core/domain"
)

// CategoryRepository defines operations on per-user categories
type CategoryRepository interface {
	// FindOrCreateCategory returns the owner's category with that name, creating it on first use.
	FindOrCreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	// ListCategories returns every category of the owner.
	ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error)
}
