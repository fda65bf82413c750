package usecase

import (
	"context"
	"errors"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
	"telegram-coin-bot/internal/infra/logging"
	"telegram-coin-bot/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ProfileUseCase = (*profileUC)(nil)

// ProfileUseCase exposes registration and profile lookups used by bot flows.
type ProfileUseCase interface {
	RegisterOrFetch(ctx context.Context, tgID int64, username, refCode string) (*model.UserProfile, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.UserProfile, error)
	Referrals(ctx context.Context, tgID int64) ([]*model.UserProfile, error)
}

type profileUC struct {
	profiles repository.ProfileRepository
	ledger   repository.LedgerRepository
	tm       repository.TransactionManager

	startingBalance int64
	referralBonus   int64

	log *zerolog.Logger
}

func NewProfileUseCase(
	profiles repository.ProfileRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	startingBalance, referralBonus int64,
	logger *zerolog.Logger,
) *profileUC {
	return &profileUC{
		profiles:        profiles,
		ledger:          ledger,
		tm:              tm,
		startingBalance: startingBalance,
		referralBonus:   referralBonus,
		log:             logger,
	}
}

// RegisterOrFetch returns the existing profile untouched (registration is
// idempotent: registered_at, balance, referral_code and invited_by survive
// repeat calls) or creates a new one. A valid refCode links the new profile
// to its inviter and pays the inviter the referral bonus, all inside one
// serializable transaction so two concurrent /start calls for the same id
// can create at most one row.
func (u *profileUC) RegisterOrFetch(ctx context.Context, tgID int64, username, refCode string) (*model.UserProfile, error) {
	defer logging.TraceDuration(u.log, "ProfileUC.RegisterOrFetch")()

	var (
		out           *model.UserProfile
		created       bool
		bonusCredited bool
	)
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.profiles.FindByTelegramID(ctx, tx, tgID)
		if err == nil {
			// Refresh the display name if Telegram reports a new one.
			if username != "" && existing.Username != username {
				existing.Username = username
				if err := u.profiles.Save(ctx, tx, existing); err != nil {
					return err
				}
			}
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		np, err := model.NewUserProfile(tgID, username, u.startingBalance)
		if err != nil {
			return err
		}

		// Resolve the inviter. Self-referral is impossible by construction:
		// the code is derived from the id, so a sender's own code never
		// resolves to another profile.
		var inviter *model.UserProfile
		if refCode != "" && refCode != np.ReferralCode {
			inviter, err = u.profiles.FindByReferralCode(ctx, tx, refCode)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		if inviter != nil {
			np.InvitedBy = inviter.ReferralCode
		}

		if err := u.profiles.Save(ctx, tx, np); err != nil {
			return err
		}

		if inviter != nil {
			if err := u.profiles.IncrementInvitedCount(ctx, tx, inviter.TelegramID); err != nil {
				return err
			}
			if u.referralBonus > 0 {
				if _, err := u.profiles.AdjustBalance(ctx, tx, inviter.TelegramID, u.referralBonus); err != nil {
					return err
				}
				entry, err := model.NewLedgerEntry(inviter.TelegramID, u.referralBonus, "referral bonus")
				if err != nil {
					return err
				}
				if err := u.ledger.Save(ctx, tx, entry); err != nil {
					return err
				}
				bonusCredited = true
			}
		}

		out = np
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		metrics.IncUsersRegistered()
		u.log.Info().Int64("tg_id", tgID).Str("invited_by", out.InvitedBy).Msg("user registered")
	}
	if bonusCredited {
		metrics.IncReferralBonus()
	}
	return out, nil
}

func (u *profileUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.UserProfile, error) {
	defer logging.TraceDuration(u.log, "ProfileUC.GetByTelegramID")()
	return u.profiles.FindByTelegramID(ctx, repository.NoTX, tgID)
}

// Referrals lists profiles invited by the given sender.
func (u *profileUC) Referrals(ctx context.Context, tgID int64) ([]*model.UserProfile, error) {
	defer logging.TraceDuration(u.log, "ProfileUC.Referrals")()
	p, err := u.profiles.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, err
	}
	return u.profiles.ListByInviter(ctx, repository.NoTX, p.ReferralCode)
}
