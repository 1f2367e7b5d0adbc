package scheduler

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
)

// SyncJob pulls the default lookback window for every owner with linked accounts.
func SyncJob(sync portssvc.SyncSvcFacade) Job {
	return JobFunc{
		JobName: "sync_linked_accounts",
		Fn:      sync.SyncAllOwners,
	}
}

// PriceRefreshJob revalues positions whose quote is older than maxAge.
func PriceRefreshJob(positions portssvc.PositionSvcFacade, maxAge time.Duration) Job {
	return JobFunc{
		JobName: "refresh_stale_positions",
		Fn: func(ctx context.Context) error {
			n, err := positions.RefreshStalePositions(ctx, maxAge)
			middleware.GetLoggerFromCtx(ctx).Info("Price refresh finished", slog.Int("refreshed", n))
			return err
		},
	}
}
