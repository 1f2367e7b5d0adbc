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
	"github.com/SscSPs/finledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// Ensure PgxTransactionRepository implements portsrepo.TransactionRepositoryFacade
var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `transaction_id, account_id, owner_id, category_id, amount, transaction_type,
	description, transaction_date, merchant, dedup_key, source, status, is_recurring, notes, metadata,
	created_at, created_by, last_updated_at, last_updated_by`

// fingerprintPredicate matches the duplicate-guard fingerprint; $1..$4 are
// account id, description, day and absolute amount.
const fingerprintPredicate = `account_id = $1 AND description = $2
	AND transaction_date >= $3 AND transaction_date < $3::timestamptz + INTERVAL '1 day'
	AND amount = $4`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.AccountID,
		&m.OwnerID,
		&m.CategoryID,
		&m.Amount,
		&m.TransactionType,
		&m.Description,
		&m.TransactionDate,
		&m.Merchant,
		&m.DedupKey,
		&m.Source,
		&m.Status,
		&m.IsRecurring,
		&m.Notes,
		&m.Metadata,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	return mapping.ToDomainTransaction(m), nil
}

func findOne(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, query string, args ...any) (*domain.Transaction, error) {
	txn, err := scanTransaction(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return &txn, nil
}

// PostTransaction inserts the transaction and moves the balance by delta while
// holding the account row lock. Duplicates are re-checked under the lock so two
// concurrent imports of the same record cannot both land.
func (r *PgxTransactionRepository) PostTransaction(ctx context.Context, txn domain.Transaction, delta decimal.Decimal, opts portsrepo.PostOptions) error {
	m := mapping.ToModelTransaction(txn)

	return r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAccount(ctx, tx, txn.AccountID); err != nil {
			return err
		}

		if m.DedupKey.Valid {
			_, err := findOne(ctx, tx, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 AND dedup_key = $2;`,
				m.AccountID, m.DedupKey.String)
			if err == nil {
				return fmt.Errorf("%w: dedup key %s", apperrors.ErrDuplicate, m.DedupKey.String)
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
		}
		if opts.CheckFingerprint {
			fp := domain.FingerprintOf(txn)
			_, err := findOne(ctx, tx, `SELECT `+transactionColumns+` FROM transactions WHERE `+fingerprintPredicate+` LIMIT 1;`,
				fp.AccountID, fp.Description, fp.Date, fp.Amount)
			if err == nil {
				return fmt.Errorf("%w: matching transaction on %s", apperrors.ErrDuplicate, fp.Date.Format(time.DateOnly))
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
		}

		insert := `
			INSERT INTO transactions (` + transactionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
		`
		_, err := tx.Exec(ctx, insert,
			m.TransactionID,
			m.AccountID,
			m.OwnerID,
			m.CategoryID,
			m.Amount,
			m.TransactionType,
			m.Description,
			m.TransactionDate,
			m.Merchant,
			m.DedupKey,
			m.Source,
			m.Status,
			m.IsRecurring,
			m.Notes,
			m.Metadata,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, m.TransactionID)
			}
			return apperrors.NewAppError(500, "failed to insert transaction "+m.TransactionID, err)
		}

		if delta.IsZero() {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE accounts
			SET balance = balance + $2, last_updated_at = $3, last_updated_by = $4
			WHERE account_id = $1;
		`, m.AccountID, delta, m.CreatedAt, m.CreatedBy)
		if err != nil {
			return apperrors.NewAppError(500, "failed to update balance of account "+m.AccountID, err)
		}
		return nil
	})
}

func (r *PgxTransactionRepository) FindTransactionByDedupKey(ctx context.Context, accountID, dedupKey string) (*domain.Transaction, error) {
	return findOne(ctx, r.Pool, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 AND dedup_key = $2;`,
		accountID, dedupKey)
}

func (r *PgxTransactionRepository) FindTransactionByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + fingerprintPredicate + ` ORDER BY created_at LIMIT 1;`
	return findOne(ctx, r.Pool, query, fp.AccountID, fp.Description, fp.Date, fp.Amount.Abs())
}

func (r *PgxTransactionRepository) MarkTransactionPosted(ctx context.Context, transactionID string, now time.Time) error {
	query := `
		UPDATE transactions
		SET status = $2, last_updated_at = $3
		WHERE transaction_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, transactionID, string(domain.StatusPosted), now)
	if err != nil {
		return fmt.Errorf("failed to mark transaction %s posted: %w", transactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListTransactionsByAccountID pages newest first on (transaction_date, created_at).
func (r *PgxTransactionRepository) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	args := []any{accountID}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`
	if nextToken != nil && *nextToken != "" {
		cursorDate, cursorCreatedAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid pagination token", fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		}
		query += ` AND (transaction_date, created_at) < ($2, $3)`
		args = append(args, cursorDate, cursorCreatedAt)
	}
	// one extra row tells us whether another page exists
	query += fmt.Sprintf(` ORDER BY transaction_date DESC, created_at DESC LIMIT $%d;`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	var next *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		token := pagination.EncodeToken(last.Date, last.CreatedAt)
		next = &token
	}
	return txns, next, nil
}

func (r *PgxTransactionRepository) SumSignedEffects(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE transaction_type
			WHEN 'INCOME' THEN amount
			WHEN 'EXPENSE' THEN -amount
			ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = $1;
	`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions for account %s: %w", accountID, err)
	}
	return sum, nil
}
