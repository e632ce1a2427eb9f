package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

var (
	ErrRecordNotFound = errors.New("idempotency record not found")
	// ErrTokenTaken means a live record for the token already exists.
	ErrTokenTaken = errors.New("idempotency token already recorded")
)

// Keys stores client idempotency tokens. A record whose ExpiresAt is not
// after now is treated as absent and may be overwritten.
type Keys interface {
	Lookup(ctx context.Context, token string, now time.Time) (models.IdempotencyRecord, error)
	LookupTx(ctx context.Context, tx *sql.Tx, token string, now time.Time) (models.IdempotencyRecord, error)
	Record(ctx context.Context, tx *sql.Tx, rec models.IdempotencyRecord) error
	Purge(ctx context.Context, before time.Time) (int64, error)
}
