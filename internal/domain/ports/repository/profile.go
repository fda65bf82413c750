package repository

import (
	"context"

	"telegram-coin-bot/internal/domain/model"
)

// -----------------------------
// Profiles
// -----------------------------

type ProfileRepository interface {
	// Save inserts a profile or, on conflict, refreshes its mutable fields
	// (username). Registration-time fields are never overwritten.
	Save(ctx context.Context, tx Tx, p *model.UserProfile) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.UserProfile, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.UserProfile, error)

	// AdjustBalance applies delta as a single atomic statement and returns the
	// new balance. Returns domain.ErrNotFound when no profile exists.
	AdjustBalance(ctx context.Context, tx Tx, tgID int64, delta int64) (int64, error)
	AddReferralEarnings(ctx context.Context, tx Tx, tgID int64, amount int64) (int64, error)
	SetReferralPercent(ctx context.Context, tx Tx, tgID int64, percent int) error
	IncrementInvitedCount(ctx context.Context, tx Tx, tgID int64) error

	CountUsers(ctx context.Context, tx Tx) (int, error)
	SumBalances(ctx context.Context, tx Tx) (int64, error)
	// ListAll returns profiles ordered by registration time ascending,
	// telegram id as tie-break.
	ListAll(ctx context.Context, tx Tx) ([]*model.UserProfile, error)
	ListByInviter(ctx context.Context, tx Tx, code string) ([]*model.UserProfile, error)
}
