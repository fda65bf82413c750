package usecase

import (
	"context"

	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
	"telegram-coin-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (users int, totalCoins int64, err error)
	ListUsers(ctx context.Context) ([]*model.UserProfile, error)
}

type statsUC struct {
	profiles repository.ProfileRepository

	log *zerolog.Logger
}

func NewStatsUseCase(profiles repository.ProfileRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{profiles: profiles, log: logger}
}

// Totals returns the user count and the sum of all balances. The two queries
// are not wrapped in a transaction; a reasonably consistent snapshot is
// enough here.
func (s *statsUC) Totals(ctx context.Context) (int, int64, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()
	users, err := s.profiles.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, err
	}
	coins, err := s.profiles.SumBalances(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, err
	}
	return users, coins, nil
}

// ListUsers returns all profiles ordered by registration time, telegram id
// as tie-break. Re-querying reflects the current state.
func (s *statsUC) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	defer logging.TraceDuration(s.log, "StatsUC.ListUsers")()
	return s.profiles.ListAll(ctx, repository.NoTX)
}
