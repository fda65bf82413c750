package usecase

import (
	"context"
	"strconv"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
	"telegram-coin-bot/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ WalletUseCase = (*walletUC)(nil)

// WalletUseCase owns all balance mutations. Every adjustment writes a ledger
// entry in the same transaction as the balance update.
type WalletUseCase interface {
	Adjust(ctx context.Context, tgID int64, delta int64, reason string) (int64, error)
	AddReferralEarnings(ctx context.Context, ident string, amount int64) (*model.UserProfile, int64, error)
	SetReferralPercent(ctx context.Context, ident string, percent int) (*model.UserProfile, int, error)
	History(ctx context.Context, tgID int64, limit int) ([]*model.LedgerEntry, error)
}

type walletUC struct {
	profiles repository.ProfileRepository
	ledger   repository.LedgerRepository
	tm       repository.TransactionManager

	log *zerolog.Logger
}

func NewWalletUseCase(
	profiles repository.ProfileRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *walletUC {
	return &walletUC{profiles: profiles, ledger: ledger, tm: tm, log: logger}
}

// Adjust applies delta atomically and records the ledger entry. The balance
// arithmetic happens in a single UPDATE statement, so concurrent adjustments
// on the same id serialize in the database.
func (u *walletUC) Adjust(ctx context.Context, tgID int64, delta int64, reason string) (int64, error) {
	defer logging.TraceDuration(u.log, "WalletUC.Adjust")()
	if delta == 0 {
		return 0, domain.ErrInvalidArgument
	}

	var newBalance int64
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		nb, err := u.profiles.AdjustBalance(ctx, tx, tgID, delta)
		if err != nil {
			return err
		}
		entry, err := model.NewLedgerEntry(tgID, delta, reason)
		if err != nil {
			return err
		}
		if err := u.ledger.Save(ctx, tx, entry); err != nil {
			return err
		}
		newBalance = nb
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// AddReferralEarnings credits the referral earnings counter of the profile
// identified by a telegram id or a referral code.
func (u *walletUC) AddReferralEarnings(ctx context.Context, ident string, amount int64) (*model.UserProfile, int64, error) {
	defer logging.TraceDuration(u.log, "WalletUC.AddReferralEarnings")()
	p, err := u.resolve(ctx, ident)
	if err != nil {
		return nil, 0, err
	}
	earnings, err := u.profiles.AddReferralEarnings(ctx, repository.NoTX, p.TelegramID, amount)
	if err != nil {
		return nil, 0, err
	}
	return p, earnings, nil
}

// SetReferralPercent updates the payout percent and returns the previous one.
func (u *walletUC) SetReferralPercent(ctx context.Context, ident string, percent int) (*model.UserProfile, int, error) {
	defer logging.TraceDuration(u.log, "WalletUC.SetReferralPercent")()
	if percent < 0 || percent > 100 {
		return nil, 0, domain.ErrInvalidArgument
	}
	p, err := u.resolve(ctx, ident)
	if err != nil {
		return nil, 0, err
	}
	old := p.ReferralPercent
	if err := u.profiles.SetReferralPercent(ctx, repository.NoTX, p.TelegramID, percent); err != nil {
		return nil, 0, err
	}
	return p, old, nil
}

func (u *walletUC) History(ctx context.Context, tgID int64, limit int) ([]*model.LedgerEntry, error) {
	defer logging.TraceDuration(u.log, "WalletUC.History")()
	return u.ledger.ListByTelegramID(ctx, repository.NoTX, tgID, limit)
}

// resolve accepts a numeric telegram id or a referral code.
func (u *walletUC) resolve(ctx context.Context, ident string) (*model.UserProfile, error) {
	if ident == "" {
		return nil, domain.ErrInvalidArgument
	}
	if tgID, err := strconv.ParseInt(ident, 10, 64); err == nil {
		return u.profiles.FindByTelegramID(ctx, repository.NoTX, tgID)
	}
	return u.profiles.FindByReferralCode(ctx, repository.NoTX, ident)
}
