//go:build !integration

package usecase

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &l
}

// mockTxManager runs the callback directly; unit tests exercise the logic,
// not transactional isolation.
type mockTxManager struct{}

func newMockTxManager() *mockTxManager { return &mockTxManager{} }

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// memProfileRepo is a small in-memory implementation used by unit tests.
type memProfileRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.UserProfile

	// optional hooks to simulate failures
	findErr error
	saveErr error
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{store: make(map[int64]*model.UserProfile)}
}

func (m *memProfileRepo) Save(ctx context.Context, _ repository.Tx, p *model.UserProfile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.store[p.TelegramID]; ok {
		// Mirror the ON CONFLICT clause: only the username is refreshed.
		existing.Username = p.Username
		return nil
	}
	cp := *p
	m.store[p.TelegramID] = &cp
	return nil
}

func (m *memProfileRepo) FindByTelegramID(ctx context.Context, _ repository.Tx, tgID int64) (*model.UserProfile, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfileRepo) FindByReferralCode(ctx context.Context, _ repository.Tx, code string) (*model.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.ReferralCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProfileRepo) AdjustBalance(ctx context.Context, _ repository.Tx, tgID int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[tgID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.Balance += delta
	return p.Balance, nil
}

func (m *memProfileRepo) AddReferralEarnings(ctx context.Context, _ repository.Tx, tgID int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[tgID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.ReferralEarnings += amount
	return p.ReferralEarnings, nil
}

func (m *memProfileRepo) SetReferralPercent(ctx context.Context, _ repository.Tx, tgID int64, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	p.ReferralPercent = percent
	return nil
}

func (m *memProfileRepo) IncrementInvitedCount(ctx context.Context, _ repository.Tx, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	p.InvitedCount++
	return nil
}

func (m *memProfileRepo) CountUsers(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memProfileRepo) SumBalances(ctx context.Context, _ repository.Tx) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		sum += p.Balance
	}
	return sum, nil
}

func (m *memProfileRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.UserProfile, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].TelegramID < out[j].TelegramID
	})
	return out, nil
}

func (m *memProfileRepo) ListByInviter(ctx context.Context, _ repository.Tx, code string) ([]*model.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.UserProfile
	for _, p := range m.store {
		if p.InvitedBy == code {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

// memLedgerRepo collects entries in memory.
type memLedgerRepo struct {
	mu      sync.RWMutex
	entries []*model.LedgerEntry
	saveErr error
}

func newMemLedgerRepo() *memLedgerRepo { return &memLedgerRepo{} }

func (m *memLedgerRepo) Save(ctx context.Context, _ repository.Tx, e *model.LedgerEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLedgerRepo) ListByTelegramID(ctx context.Context, _ repository.Tx, tgID int64, limit int) ([]*model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].TelegramID == tgID {
			cp := *m.entries[i]
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memLedgerRepo) SumByTelegramID(ctx context.Context, _ repository.Tx, tgID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.TelegramID == tgID {
			sum += e.Amount
		}
	}
	return sum, nil
}
