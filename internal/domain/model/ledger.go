package model

import (
	"time"

	"telegram-coin-bot/internal/domain"

	"github.com/google/uuid"
)

// LedgerEntry records a single balance adjustment. Every credit or debit
// writes exactly one entry in the same transaction as the update, so the
// ledger always sums to the profile balance minus the starting grant.
type LedgerEntry struct {
	ID         string
	TelegramID int64
	Amount     int64
	Reason     string
	CreatedAt  time.Time
}

func NewLedgerEntry(tgID int64, amount int64, reason string) (*LedgerEntry, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if amount == 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &LedgerEntry{
		ID:         uuid.NewString(),
		TelegramID: tgID,
		Amount:     amount,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}, nil
}
