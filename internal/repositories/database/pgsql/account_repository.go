package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/SscSPs/finledger/internal/models"
	"github.com/SscSPs/finledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

type PgxAccountRepository struct {
	BaseRepository
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `account_id, owner_id, name, account_type, currency_code, balance,
	institution_name, external_account_id, access_token, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row rowScanner) (domain.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.OwnerID,
		&m.Name,
		&m.AccountType,
		&m.CurrencyCode,
		&m.Balance,
		&m.InstitutionName,
		&m.ExternalAccountID,
		&m.AccessToken,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return mapping.ToDomainAccount(m), nil
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.OwnerID,
		m.Name,
		m.AccountType,
		m.CurrencyCode,
		m.Balance,
		m.InstitutionName,
		m.ExternalAccountID,
		m.AccessToken,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, m.AccountID)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`

	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	return &acc, nil
}

// lockAccount takes the row lock that serializes every balance and position
// write on the account. Must be called within a transaction.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE;`

	acc, err := scanAccount(tx.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to lock account "+accountID, err)
	}
	return &acc, nil
}

func (r *PgxAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string, includeInactive bool) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1 AND ($2::boolean OR is_active = TRUE)
		ORDER BY name, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts for owner %s: %w", ownerID, err)
	}
	return collectAccounts(rows)
}

// ListLinkedAccounts returns the active accounts of the owner that carry aggregator credentials.
func (r *PgxAccountRepository) ListLinkedAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1
		  AND is_active = TRUE
		  AND access_token IS NOT NULL AND access_token <> ''
		  AND external_account_id IS NOT NULL AND external_account_id <> ''
		ORDER BY name, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked accounts for owner %s: %w", ownerID, err)
	}
	return collectAccounts(rows)
}

func (r *PgxAccountRepository) ListOwnersWithLinkedAccounts(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT owner_id
		FROM accounts
		WHERE is_active = TRUE
		  AND access_token IS NOT NULL AND access_token <> ''
		  AND external_account_id IS NOT NULL AND external_account_id <> ''
		ORDER BY owner_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners with linked accounts: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan owner ids: %w", err)
	}
	return owners, nil
}

func (r *PgxAccountRepository) UpdateAccountLink(ctx context.Context, accountID, externalAccountID, accessToken, institution string, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET external_account_id = $2, access_token = $3, institution_name = NULLIF($4, ''),
		    last_updated_at = $5, last_updated_by = $6
		WHERE account_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, externalAccountID, accessToken, institution, now, userID)
	if err != nil {
		return fmt.Errorf("failed to link account %s: %w", accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeactivateAccount marks an account as inactive. Deactivating an inactive account is a no-op.
func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE account_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to execute deactivate account %s: %w", accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ResetAccount deletes the account's transactions, trades and positions and
// zeroes its balance, all under the account lock.
func (r *PgxAccountRepository) ResetAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM transactions WHERE account_id = $1;`, accountID)
		batch.Queue(`DELETE FROM trades WHERE account_id = $1;`, accountID)
		batch.Queue(`DELETE FROM positions WHERE account_id = $1;`, accountID)
		batch.Queue(`UPDATE accounts SET balance = 0, last_updated_at = $2, last_updated_by = $3 WHERE account_id = $1;`,
			accountID, now, userID)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperrors.NewAppError(500, "failed to reset account "+accountID, err)
		}
		return nil
	})
}
