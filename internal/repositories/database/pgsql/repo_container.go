package pgsql

import (
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	base := BaseRepository{Pool: dbPool}

	return portsrepo.RepositoryProvider{
		AccountRepo:     &PgxAccountRepository{BaseRepository: base},
		TransactionRepo: &PgxTransactionRepository{BaseRepository: base},
		PositionRepo:    &PgxPositionRepository{BaseRepository: base},
		CategoryRepo:    &PgxCategoryRepository{BaseRepository: base},
	}
}
