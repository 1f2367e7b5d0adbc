package services

// ServiceContainer holds all service interfaces for dependency injection
type ServiceContainer struct {
	Account     AccountSvcFacade
	Transaction TransactionSvcFacade
	Position    PositionSvcFacade
	Import      ImportSvc
	Sync        SyncSvcFacade
}
