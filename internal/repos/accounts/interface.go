package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrVersionConflict = errors.New("account version conflict")
	ErrNegativeBalance = errors.New("balance must not be negative")
)

type Accounts interface {
	// Ensure creates a zero-balance account for userID unless one exists.
	Ensure(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) error
	// LockByUser reads the account and holds it until tx ends.
	LockByUser(ctx context.Context, tx *sql.Tx, userID uint64) (models.Account, error)
	// UpdateBalance stores balance and bumps the version if it still equals expectedVersion.
	UpdateBalance(ctx context.Context, tx *sql.Tx, accountID int64, balance decimal.Decimal, expectedVersion int64, now time.Time) error
	GetByUser(ctx context.Context, userID uint64) (models.Account, error)
}
