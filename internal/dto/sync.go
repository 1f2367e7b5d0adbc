package dto

import (
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
)

// SyncRequest optionally narrows the date window pulled from the aggregator.
// Both bounds default to the configured lookback when omitted.
type SyncRequest struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// SyncAccountResponse is the outcome of syncing one account.
type SyncAccountResponse struct {
	AccountID string               `json:"accountID"`
	Result    *domain.ImportResult `json:"result"`
}

// SyncAllResponse carries one entry per linked account, in enumeration order.
type SyncAllResponse struct {
	Results   []domain.AccountSyncResult `json:"results"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
}

// NewSyncAllResponse tallies per-account outcomes.
func NewSyncAllResponse(results []domain.AccountSyncResult) SyncAllResponse {
	res := SyncAllResponse{Results: results}
	for _, r := range results {
		if r.Succeeded() {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}
