package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// DateRange bounds an aggregator query. Zero values mean "unbounded".
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastDays returns a range covering the n days before now, open-ended at the top.
func LastDays(now time.Time, n int) DateRange {
	return DateRange{Start: DayOf(now.AddDate(0, 0, -n))}
}
