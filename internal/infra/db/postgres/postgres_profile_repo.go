package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*PostgresProfileRepo)(nil)

type PostgresProfileRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileRepo(pool *pgxpool.Pool) *PostgresProfileRepo {
	return &PostgresProfileRepo{pool: pool}
}

const profileColumns = `
telegram_id, username, balance, registered_at, referral_code,
invited_by, invited_count, referral_earnings, referral_percent`

func scanProfile(row pgx.Row) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := row.Scan(
		&p.TelegramID, &p.Username, &p.Balance, &p.RegisteredAt, &p.ReferralCode,
		&p.InvitedBy, &p.InvitedCount, &p.ReferralEarnings, &p.ReferralPercent,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save inserts a profile; on conflict only the username is refreshed.
// balance, registered_at, referral_code and invited_by stay as first written,
// which is what makes /start idempotent at the storage level.
func (r *PostgresProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.UserProfile) error {
	const q = `
INSERT INTO profiles (
  telegram_id, username, balance, registered_at, referral_code,
  invited_by, invited_count, referral_earnings, referral_percent
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		p.TelegramID, p.Username, p.Balance, p.RegisteredAt, p.ReferralCode,
		p.InvitedBy, p.InvitedCount, p.ReferralEarnings, p.ReferralPercent,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE telegram_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanProfile(ex.QueryRow(ctx, q, tgID))
}

func (r *PostgresProfileRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanProfile(ex.QueryRow(ctx, q, code))
}

// AdjustBalance is a single atomic statement: the delta is computed and
// committed by the database, so concurrent adjustments on the same id
// serialize without a read-modify-write window.
func (r *PostgresProfileRepo) AdjustBalance(ctx context.Context, tx repository.Tx, tgID int64, delta int64) (int64, error) {
	const q = `UPDATE profiles SET balance = balance + $2 WHERE telegram_id=$1 RETURNING balance;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var newBalance int64
	if err := ex.QueryRow(ctx, q, tgID, delta).Scan(&newBalance); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return newBalance, nil
}

func (r *PostgresProfileRepo) AddReferralEarnings(ctx context.Context, tx repository.Tx, tgID int64, amount int64) (int64, error) {
	const q = `UPDATE profiles SET referral_earnings = referral_earnings + $2 WHERE telegram_id=$1 RETURNING referral_earnings;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var earnings int64
	if err := ex.QueryRow(ctx, q, tgID, amount).Scan(&earnings); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("add referral earnings: %w", err)
	}
	return earnings, nil
}

func (r *PostgresProfileRepo) SetReferralPercent(ctx context.Context, tx repository.Tx, tgID int64, percent int) error {
	const q = `UPDATE profiles SET referral_percent=$2 WHERE telegram_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, tgID, percent)
	if err != nil {
		return fmt.Errorf("set referral percent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresProfileRepo) IncrementInvitedCount(ctx context.Context, tx repository.Tx, tgID int64) error {
	const q = `UPDATE profiles SET invited_count = invited_count + 1 WHERE telegram_id=$1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, tgID)
	if err != nil {
		return fmt.Errorf("increment invited count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresProfileRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM profiles;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresProfileRepo) SumBalances(ctx context.Context, tx repository.Tx) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := ex.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM profiles;`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return sum, nil
}

func (r *PostgresProfileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles ORDER BY registered_at ASC, telegram_id ASC;`
	return r.list(ctx, tx, q)
}

func (r *PostgresProfileRepo) ListByInviter(ctx context.Context, tx repository.Tx, code string) ([]*model.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE invited_by=$1 ORDER BY registered_at ASC, telegram_id ASC;`
	return r.list(ctx, tx, q, code)
}

func (r *PostgresProfileRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.UserProfile, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
