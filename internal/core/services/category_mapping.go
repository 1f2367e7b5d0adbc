package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/google/uuid"
)

// aggregatorCategories maps the aggregator's category taxonomy onto the
// dashboard's category names. Unknown categories stay uncategorized.
var aggregatorCategories = map[string]string{
	"dining":         "Food & Dining",
	"groceries":      "Food & Dining",
	"bar":            "Food & Dining",
	"clothing":       "Shopping",
	"shopping":       "Shopping",
	"electronics":    "Shopping",
	"transport":      "Transportation",
	"transportation": "Transportation",
	"fuel":           "Transportation",
	"utilities":      "Bills & Utilities",
	"phone":          "Bills & Utilities",
	"insurance":      "Bills & Utilities",
	"entertainment":  "Entertainment",
	"sport":          "Entertainment",
	"health":         "Health",
	"home":           "Home",
	"income":         "Salary",
	"general":        "Other",
	"service":        "Other",
	"office":         "Other",
	"software":       "Other",
	"tax":            "Other",
	"charity":        "Other",
	"accommodation":  "Other",
	"advertising":    "Other",
	"education":      "Other",
	"investment":     "Other",
	"loan":           "Other",
}

// MapAggregatorCategory returns the internal category name for an aggregator category.
func MapAggregatorCategory(aggregatorCategory string) (string, bool) {
	name, ok := aggregatorCategories[strings.ToLower(strings.TrimSpace(aggregatorCategory))]
	return name, ok
}

type categoryResolver struct {
	BaseService
	categoryRepo portsrepo.CategoryRepository
}

// NewCategoryResolver creates the resolver used by the importer.
func NewCategoryResolver(repo portsrepo.CategoryRepository) portssvc.CategoryResolverSvc {
	return &categoryResolver{categoryRepo: repo}
}

var _ portssvc.CategoryResolverSvc = (*categoryResolver)(nil)

func (r *categoryResolver) ResolveCategoryID(ctx context.Context, ownerID, aggregatorCategory string, txnType domain.TransactionType) (*string, error) {
	name, ok := MapAggregatorCategory(aggregatorCategory)
	if !ok {
		return nil, nil
	}

	catType := domain.CategoryExpense
	if txnType == domain.Income {
		catType = domain.CategoryIncome
	}

	now := r.now()
	category, err := r.categoryRepo.FindOrCreateCategory(ctx, domain.Category{
		CategoryID: uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		Type:       catType,
		Color:      domain.DefaultCategoryColor,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     ownerID,
			LastUpdatedAt: now,
			LastUpdatedBy: ownerID,
		},
	})
	if err != nil {
		r.LogError(ctx, err, "Failed to resolve category", slog.String("category", name))
		return nil, err
	}
	return &category.CategoryID, nil
}
