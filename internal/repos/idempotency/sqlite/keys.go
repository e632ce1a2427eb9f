package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/idempotency"
)

var _ idempotency.Keys = (*keysRepo)(nil)

// keysRepo stores expiry as unix nanoseconds so that comparisons in SQL
// are numeric.
type keysRepo struct{ db *sql.DB }

func New(db *sql.DB) *keysRepo {
	return &keysRepo{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *keysRepo) Lookup(ctx context.Context, token string, now time.Time) (models.IdempotencyRecord, error) {
	return lookup(ctx, r.db, token, now)
}

func (r *keysRepo) LookupTx(ctx context.Context, tx *sql.Tx, token string, now time.Time) (models.IdempotencyRecord, error) {
	return lookup(ctx, tx, token, now)
}

func lookup(ctx context.Context, q querier, token string, now time.Time) (models.IdempotencyRecord, error) {
	var (
		rec       models.IdempotencyRecord
		createdAt int64
		expiresAt int64
	)

	err := q.QueryRowContext(ctx, `
		SELECT token, transaction_id, user_id, kind, amount, created_at, expires_at
		FROM idempotency_keys
		WHERE token = ?
		  AND expires_at > ?
	`, token, now.UnixNano()).Scan(
		&rec.Token, &rec.TransactionID, &rec.UserID, &rec.Kind, &rec.Amount, &createdAt, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IdempotencyRecord{}, idempotency.ErrRecordNotFound
		}

		return models.IdempotencyRecord{}, fmt.Errorf("lookup idempotency key: %w", err)
	}

	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()

	return rec, nil
}

func (r *keysRepo) Record(ctx context.Context, tx *sql.Tx, rec models.IdempotencyRecord) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (token, transaction_id, user_id, kind, amount, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE
		SET transaction_id = excluded.transaction_id,
		    user_id = excluded.user_id,
		    kind = excluded.kind,
		    amount = excluded.amount,
		    created_at = excluded.created_at,
		    expires_at = excluded.expires_at
		WHERE idempotency_keys.expires_at <= excluded.created_at
	`,
		rec.Token, rec.TransactionID, rec.UserID, string(rec.Kind), rec.Amount.StringFixed(2),
		rec.CreatedAt.UnixNano(), rec.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return idempotency.ErrTokenTaken
	}

	return nil
}

func (r *keysRepo) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_keys
		WHERE expires_at <= ?
	`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}
