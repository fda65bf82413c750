package repository

import (
	"context"

	"telegram-coin-bot/internal/domain/model"
)

// -----------------------------
// Ledger
// -----------------------------

type LedgerRepository interface {
	Save(ctx context.Context, tx Tx, e *model.LedgerEntry) error
	ListByTelegramID(ctx context.Context, tx Tx, tgID int64, limit int) ([]*model.LedgerEntry, error)
	SumByTelegramID(ctx context.Context, tx Tx, tgID int64) (int64, error)
}
