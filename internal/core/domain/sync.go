package domain

// RecordFailure describes one external record the importer could not post.
type RecordFailure struct {
	RecordID string `json:"recordID"`
	Message  string `json:"message"`
}

// ImportResult summarizes one import batch. Duplicates are a normal outcome, not failures.
type ImportResult struct {
	Total             int             `json:"total"`
	Accepted          int             `json:"accepted"`
	SkippedDuplicates int             `json:"skippedDuplicates"`
	Settled           int             `json:"settled"`
	Failed            []RecordFailure `json:"failed"`
}

// AccountSyncResult is the outcome of syncing one linked account.
// Error is set when the sync failed. Result may still be set alongside it
// when an interrupted import had already committed some records.
type AccountSyncResult struct {
	AccountID   string        `json:"accountID"`
	AccountName string        `json:"accountName"`
	Result      *ImportResult `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Succeeded reports whether the account synced.
func (r AccountSyncResult) Succeeded() bool {
	return r.Error == ""
}
