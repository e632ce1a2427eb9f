package transactions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastprodman/walletledger/internal/models"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Transactions interface {
	// Insert appends an entry to the ledger. Entries are never updated.
	Insert(ctx context.Context, tx *sql.Tx, t models.Transaction) error
	Get(ctx context.Context, id string) (models.Transaction, error)
	// ListByUser returns up to limit entries, newest first.
	ListByUser(ctx context.Context, userID uint64, limit int) ([]models.Transaction, error)
	// ListAll returns every entry of the user in sequence order.
	ListAll(ctx context.Context, tx *sql.Tx, userID uint64) ([]models.Transaction, error)
}

// ClampLimit maps a requested page size into [1, MaxLimit], using
// DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
