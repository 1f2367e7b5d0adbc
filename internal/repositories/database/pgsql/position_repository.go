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
	"github.com/shopspring/decimal"
)

type PgxPositionRepository struct {
	BaseRepository
}

// Ensure PgxPositionRepository implements portsrepo.PositionRepositoryFacade
var _ portsrepo.PositionRepositoryFacade = (*PgxPositionRepository)(nil)

const positionColumns = `position_id, account_id, owner_id, symbol, quantity, average_cost, total_cost,
	current_price, total_value, unrealized_gain, last_updated`

const tradeColumns = `trade_id, account_id, owner_id, symbol, side, quantity, price, fees, total_amount, trade_date, created_at`

func scanPosition(row rowScanner) (domain.Position, error) {
	var m models.Position
	err := row.Scan(
		&m.PositionID,
		&m.AccountID,
		&m.OwnerID,
		&m.Symbol,
		&m.Quantity,
		&m.AverageCost,
		&m.TotalCost,
		&m.CurrentPrice,
		&m.TotalValue,
		&m.UnrealizedGain,
		&m.LastUpdated,
	)
	if err != nil {
		return domain.Position{}, err
	}
	return mapping.ToDomainPosition(m), nil
}

func scanTrade(row rowScanner) (domain.Trade, error) {
	var m models.Trade
	err := row.Scan(
		&m.TradeID,
		&m.AccountID,
		&m.OwnerID,
		&m.Symbol,
		&m.Side,
		&m.Quantity,
		&m.Price,
		&m.Fees,
		&m.TotalAmount,
		&m.TradeDate,
		&m.CreatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	return mapping.ToDomainTrade(m), nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PgxPositionRepository) queryPositions(ctx context.Context, q querier, query string, args ...any) ([]domain.Position, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

// listTrades returns trades in recorded order. seq is assigned while the
// account row is locked, so it matches the order the oversell checks ran in.
func listTrades(ctx context.Context, q querier, accountID, symbol string) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE account_id = $1 AND symbol = $2
		ORDER BY seq;
	`
	rows, err := q.Query(ctx, query, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for %s: %w", symbol, err)
	}
	defer rows.Close()

	trades := []domain.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// RecordTrade appends the trade and writes the position computed by mutate in
// one transaction. The account row lock serializes trades on the same account.
func (r *PgxPositionRepository) RecordTrade(ctx context.Context, trade domain.Trade, mutate portsrepo.PositionMutation) (*domain.Position, error) {
	var result *domain.Position

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAccount(ctx, tx, trade.AccountID); err != nil {
			return err
		}

		var existing *domain.Position
		p, err := scanPosition(tx.QueryRow(ctx,
			`SELECT `+positionColumns+` FROM positions WHERE account_id = $1 AND symbol = $2;`,
			trade.AccountID, trade.Symbol))
		switch {
		case err == nil:
			existing = &p
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return apperrors.NewAppError(500, "failed to load position "+trade.Symbol, err)
		}

		history, err := listTrades(ctx, tx, trade.AccountID, trade.Symbol)
		if err != nil {
			return apperrors.NewAppError(500, "failed to load trade history", err)
		}
		history = append(history, trade)

		next, err := mutate(existing, history)
		if err != nil {
			return err
		}

		mt := mapping.ToModelTrade(trade)
		batch := &pgx.Batch{}
		batch.Queue(`
			INSERT INTO trades (`+tradeColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
		`, mt.TradeID, mt.AccountID, mt.OwnerID, mt.Symbol, mt.Side, mt.Quantity, mt.Price, mt.Fees, mt.TotalAmount, mt.TradeDate, mt.CreatedAt)

		if next == nil {
			batch.Queue(`DELETE FROM positions WHERE account_id = $1 AND symbol = $2;`, trade.AccountID, trade.Symbol)
		} else {
			mp := mapping.ToModelPosition(*next)
			batch.Queue(`
				INSERT INTO positions (`+positionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (account_id, symbol) DO UPDATE SET
					quantity = EXCLUDED.quantity,
					average_cost = EXCLUDED.average_cost,
					total_cost = EXCLUDED.total_cost,
					current_price = EXCLUDED.current_price,
					total_value = EXCLUDED.total_value,
					unrealized_gain = EXCLUDED.unrealized_gain,
					last_updated = EXCLUDED.last_updated;
			`, mp.PositionID, mp.AccountID, mp.OwnerID, mp.Symbol, mp.Quantity, mp.AverageCost, mp.TotalCost,
				mp.CurrentPrice, mp.TotalValue, mp.UnrealizedGain, mp.LastUpdated)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: trade %s", apperrors.ErrDuplicate, trade.TradeID)
			}
			return apperrors.NewAppError(500, "failed to record trade "+trade.TradeID, err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevaluePosition recomputes valuation from the quantity currently stored, so
// a trade that landed after the stale scan is never overwritten.
func (r *PgxPositionRepository) RevaluePosition(ctx context.Context, accountID, symbol string, price decimal.Decimal, at time.Time) error {
	query := `
		UPDATE positions
		SET current_price = $3,
		    total_value = quantity * $3,
		    unrealized_gain = quantity * $3 - quantity * average_cost,
		    last_updated = $4
		WHERE account_id = $1 AND symbol = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, symbol, price, at)
	if err != nil {
		return fmt.Errorf("failed to revalue position %s/%s: %w", accountID, symbol, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxPositionRepository) FindPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error) {
	p, err := scanPosition(r.Pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE account_id = $1 AND symbol = $2;`,
		accountID, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find position %s/%s: %w", accountID, symbol, err)
	}
	return &p, nil
}

func (r *PgxPositionRepository) ListPositionsByAccount(ctx context.Context, accountID string) ([]domain.Position, error) {
	return r.queryPositions(ctx, r.Pool,
		`SELECT `+positionColumns+` FROM positions WHERE account_id = $1 ORDER BY symbol;`, accountID)
}

func (r *PgxPositionRepository) ListPositionsByOwner(ctx context.Context, ownerID string) ([]domain.Position, error) {
	return r.queryPositions(ctx, r.Pool,
		`SELECT `+positionColumns+` FROM positions WHERE owner_id = $1 ORDER BY account_id, symbol;`, ownerID)
}

func (r *PgxPositionRepository) ListStalePositions(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Position, error) {
	return r.queryPositions(ctx, r.Pool, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE last_updated < $1 AND ($2::text = '' OR owner_id = $2)
		ORDER BY account_id, symbol;
	`, cutoff, ownerID)
}

func (r *PgxPositionRepository) ListTrades(ctx context.Context, accountID, symbol string) ([]domain.Trade, error) {
	return listTrades(ctx, r.Pool, accountID, symbol)
}
