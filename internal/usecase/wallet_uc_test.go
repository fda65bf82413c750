//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
)

func seedProfile(t *testing.T, repo *memProfileRepo, tgID int64, balance int64) *model.UserProfile {
	t.Helper()
	p, err := model.NewUserProfile(tgID, "user", balance)
	if err != nil {
		t.Fatalf("NewUserProfile failed: %v", err)
	}
	if err := repo.Save(context.Background(), nil, p); err != nil {
		t.Fatalf("seed Save failed: %v", err)
	}
	return p
}

func TestWalletUseCase_Adjust(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()
	tm := newMockTxManager()

	t.Run("adjustments accumulate", func(t *testing.T) {
		profiles := newMemProfileRepo()
		ledger := newMemLedgerRepo()
		seedProfile(t, profiles, 42, 0)
		uc := NewWalletUseCase(profiles, ledger, tm, testLogger)

		if _, err := uc.Adjust(ctx, 42, 10, "grant"); err != nil {
			t.Fatalf("first Adjust failed: %v", err)
		}
		newBalance, err := uc.Adjust(ctx, 42, -3, "spend")
		if err != nil {
			t.Fatalf("second Adjust failed: %v", err)
		}
		if newBalance != 7 {
			t.Errorf("expected balance 0+10-3=7, got %d", newBalance)
		}
		if sum, _ := ledger.SumByTelegramID(ctx, nil, 42); sum != 7 {
			t.Errorf("expected ledger sum 7, got %d", sum)
		}
	})

	t.Run("unknown profile fails with ErrNotFound", func(t *testing.T) {
		uc := NewWalletUseCase(newMemProfileRepo(), newMemLedgerRepo(), tm, testLogger)
		if _, err := uc.Adjust(ctx, 4242, 5, "grant"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("zero delta is rejected", func(t *testing.T) {
		uc := NewWalletUseCase(newMemProfileRepo(), newMemLedgerRepo(), tm, testLogger)
		if _, err := uc.Adjust(ctx, 42, 0, "noop"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ledger failure rolls up", func(t *testing.T) {
		profiles := newMemProfileRepo()
		ledger := newMemLedgerRepo()
		expectedErr := errors.New("disk full")
		ledger.saveErr = expectedErr
		seedProfile(t, profiles, 42, 0)
		uc := NewWalletUseCase(profiles, ledger, tm, testLogger)

		if _, err := uc.Adjust(ctx, 42, 5, "grant"); !errors.Is(err, expectedErr) {
			t.Errorf("expected error to wrap %v, got %v", expectedErr, err)
		}
	})
}

func TestWalletUseCase_AddReferralEarnings(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()
	tm := newMockTxManager()

	t.Run("resolves by telegram id", func(t *testing.T) {
		profiles := newMemProfileRepo()
		seedProfile(t, profiles, 42, 0)
		uc := NewWalletUseCase(profiles, newMemLedgerRepo(), tm, testLogger)

		_, earnings, err := uc.AddReferralEarnings(ctx, "42", 100)
		if err != nil {
			t.Fatalf("AddReferralEarnings failed: %v", err)
		}
		if earnings != 100 {
			t.Errorf("expected earnings 100, got %d", earnings)
		}
	})

	t.Run("resolves by referral code", func(t *testing.T) {
		profiles := newMemProfileRepo()
		p := seedProfile(t, profiles, 42, 0)
		uc := NewWalletUseCase(profiles, newMemLedgerRepo(), tm, testLogger)

		target, earnings, err := uc.AddReferralEarnings(ctx, p.ReferralCode, 50)
		if err != nil {
			t.Fatalf("AddReferralEarnings failed: %v", err)
		}
		if target.TelegramID != 42 {
			t.Errorf("expected resolution to id 42, got %d", target.TelegramID)
		}
		if earnings != 50 {
			t.Errorf("expected earnings 50, got %d", earnings)
		}
	})

	t.Run("unknown identifier fails with ErrNotFound", func(t *testing.T) {
		uc := NewWalletUseCase(newMemProfileRepo(), newMemLedgerRepo(), tm, testLogger)
		if _, _, err := uc.AddReferralEarnings(ctx, "nosuchcode", 5); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestWalletUseCase_SetReferralPercent(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()
	tm := newMockTxManager()

	t.Run("updates and returns the previous percent", func(t *testing.T) {
		profiles := newMemProfileRepo()
		seedProfile(t, profiles, 42, 0)
		uc := NewWalletUseCase(profiles, newMemLedgerRepo(), tm, testLogger)

		_, old, err := uc.SetReferralPercent(ctx, "42", 10)
		if err != nil {
			t.Fatalf("SetReferralPercent failed: %v", err)
		}
		if old != model.DefaultReferralPercent {
			t.Errorf("expected previous percent %d, got %d", model.DefaultReferralPercent, old)
		}
		p, _ := profiles.FindByTelegramID(ctx, nil, 42)
		if p.ReferralPercent != 10 {
			t.Errorf("expected percent 10, got %d", p.ReferralPercent)
		}
	})

	t.Run("rejects out-of-range percent", func(t *testing.T) {
		uc := NewWalletUseCase(newMemProfileRepo(), newMemLedgerRepo(), tm, testLogger)
		if _, _, err := uc.SetReferralPercent(ctx, "42", 101); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestStatsUseCase(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("totals reflect the store", func(t *testing.T) {
		profiles := newMemProfileRepo()
		seedProfile(t, profiles, 1, 5)
		seedProfile(t, profiles, 2, 7)
		uc := NewStatsUseCase(profiles, testLogger)

		users, coins, err := uc.Totals(ctx)
		if err != nil {
			t.Fatalf("Totals failed: %v", err)
		}
		if users != 2 {
			t.Errorf("expected 2 users, got %d", users)
		}
		if coins != 12 {
			t.Errorf("expected total coins 12, got %d", coins)
		}
	})

	t.Run("list is ordered by registration time", func(t *testing.T) {
		profiles := newMemProfileRepo()
		seedProfile(t, profiles, 3, 0)
		seedProfile(t, profiles, 1, 0)
		seedProfile(t, profiles, 2, 0)
		uc := NewStatsUseCase(profiles, testLogger)

		out, err := uc.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(out) != 3 {
			t.Fatalf("expected 3 profiles, got %d", len(out))
		}
		for i := 1; i < len(out); i++ {
			prev, cur := out[i-1], out[i]
			if cur.RegisteredAt.Before(prev.RegisteredAt) {
				t.Errorf("expected ascending registration order at index %d", i)
			}
			if cur.RegisteredAt.Equal(prev.RegisteredAt) && cur.TelegramID < prev.TelegramID {
				t.Errorf("expected telegram id tie-break at index %d", i)
			}
		}
	})
}
