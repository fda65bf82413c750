package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*PostgresLedgerRepo)(nil)

type PostgresLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresLedgerRepo(pool *pgxpool.Pool) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{pool: pool}
}

func (r *PostgresLedgerRepo) Save(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO ledger (id, telegram_id, amount, reason, created_at)
VALUES ($1,$2,$3,$4,$5);
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, e.ID, e.TelegramID, e.Amount, e.Reason, e.CreatedAt); err != nil {
		return fmt.Errorf("save ledger entry: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepo) ListByTelegramID(ctx context.Context, tx repository.Tx, tgID int64, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, telegram_id, amount, reason, created_at
  FROM ledger WHERE telegram_id=$1
 ORDER BY created_at DESC LIMIT $2;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, tgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TelegramID, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *PostgresLedgerRepo) SumByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := ex.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ledger WHERE telegram_id=$1;`, tgID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}
