// Package events defines the notifications emitted after a ledger commit.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/models"
)

const TypeTransactionCompleted = "transaction.completed"

type TransactionCompleted struct {
	Type          string          `json:"type"`
	TransactionID string          `json:"transaction_id"`
	UserID        uint64          `json:"user_id"`
	AccountID     int64           `json:"account_id"`
	Kind          models.Kind     `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Sequence      int64           `json:"sequence"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// FromTransaction builds the event for a committed ledger entry.
func FromTransaction(t models.Transaction) TransactionCompleted {
	return TransactionCompleted{
		Type:          TypeTransactionCompleted,
		TransactionID: t.ID,
		UserID:        t.UserID,
		AccountID:     t.AccountID,
		Kind:          t.Kind,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Sequence:      t.Sequence,
		OccurredAt:    t.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev TransactionCompleted) error
}
