package domain

// CategoryType is INCOME or EXPENSE.
type CategoryType string

const (
	CategoryIncome  CategoryType = "INCOME"
	CategoryExpense CategoryType = "EXPENSE"
)

// DefaultCategoryColor is applied to categories created by imports.
const DefaultCategoryColor = "#3b82f6"

// Category groups transactions for a single owner. Names are unique per owner.
type Category struct {
	CategoryID string       `json:"categoryID"`
	OwnerID    string       `json:"ownerID"`
	Name       string       `json:"name"`
	Type       CategoryType `json:"type"`
	Color      string       `json:"color"`
	AuditFields
}
