package models

// Category is the row stored in the categories table.
type Category struct {
	CategoryID   string `db:"category_id"`
	OwnerID      string `db:"owner_id"`
	Name         string `db:"name"`
	CategoryType string `db:"category_type"`
	Color        string `db:"color"`
	AuditFields
}
