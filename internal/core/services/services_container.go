package services

import (
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/platform/config"
)

// External holds the adapters to systems outside the ledger.
type External struct {
	PriceOracle portssvc.PriceOracle
	Aggregator  portssvc.AggregatorClient
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, ext External) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(
		repos.AccountRepo,
		WithTransactionReader(repos.TransactionRepo),
	)

	container.Transaction = NewTransactionService(repos.AccountRepo, repos.TransactionRepo)

	container.Position = NewPositionService(
		repos.AccountRepo,
		repos.PositionRepo,
		WithPriceOracle(ext.PriceOracle),
		WithRefreshConcurrency(cfg.PriceConcurrency),
	)

	container.Import = NewImportService(
		repos.AccountRepo,
		repos.TransactionRepo,
		container.Transaction,
		NewCategoryResolver(repos.CategoryRepo),
	)

	container.Sync = NewSyncService(
		repos.AccountRepo,
		ext.Aggregator,
		container.Import,
		WithFetchTimeout(cfg.TellerTimeout),
		WithSyncConcurrency(cfg.SyncConcurrency),
		WithLookbackDays(cfg.SyncLookbackDays),
	)

	return container
}
