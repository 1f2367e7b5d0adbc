package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/SscSPs/finledger/internal/models"
	"github.com/SscSPs/finledger/internal/utils/mapping"
)

type PgxCategoryRepository struct {
	BaseRepository
}

// Ensure PgxCategoryRepository implements portsrepo.CategoryRepository
var _ portsrepo.CategoryRepository = (*PgxCategoryRepository)(nil)

const categoryColumns = `category_id, owner_id, name, category_type, color, created_at, created_by, last_updated_at, last_updated_by`

func scanCategory(row rowScanner) (domain.Category, error) {
	var m models.Category
	err := row.Scan(
		&m.CategoryID,
		&m.OwnerID,
		&m.Name,
		&m.CategoryType,
		&m.Color,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Category{}, err
	}
	return mapping.ToDomainCategory(m), nil
}

// FindOrCreateCategory relies on UNIQUE (owner_id, name): a concurrent insert of
// the same name loses the conflict and both callers read back the winner.
func (r *PgxCategoryRepository) FindOrCreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	m := mapping.ToModelCategory(category)

	_, err := r.Pool.Exec(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, name) DO NOTHING;
	`, m.CategoryID, m.OwnerID, m.Name, m.CategoryType, m.Color, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to insert category %s: %w", m.Name, err)
	}

	c, err := scanCategory(r.Pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = $1 AND name = $2;`, m.OwnerID, m.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to read category %s: %w", m.Name, err)
	}
	return &c, nil
}

func (r *PgxCategoryRepository) ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner_id = $1 ORDER BY name;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}
