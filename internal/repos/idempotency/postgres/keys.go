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
	var rec models.IdempotencyRecord

	err := q.QueryRowContext(ctx, `
		SELECT token, transaction_id, user_id, kind, amount, created_at, expires_at
		FROM idempotency_keys
		WHERE token = $1
		  AND expires_at > $2
	`, token, now).Scan(
		&rec.Token, &rec.TransactionID, &rec.UserID, &rec.Kind, &rec.Amount, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IdempotencyRecord{}, idempotency.ErrRecordNotFound
		}

		return models.IdempotencyRecord{}, fmt.Errorf("lookup idempotency key: %w", err)
	}

	return rec, nil
}

// Record inserts the token, replacing an expired record if one exists.
// A concurrent transaction holding the same token blocks on the primary key
// until it finishes; if it committed, no row is affected and ErrTokenTaken
// is returned.
func (r *keysRepo) Record(ctx context.Context, tx *sql.Tx, rec models.IdempotencyRecord) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (token, transaction_id, user_id, kind, amount, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token) DO UPDATE
		SET transaction_id = EXCLUDED.transaction_id,
		    user_id = EXCLUDED.user_id,
		    kind = EXCLUDED.kind,
		    amount = EXCLUDED.amount,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at <= EXCLUDED.created_at
	`, rec.Token, rec.TransactionID, rec.UserID, rec.Kind, rec.Amount, rec.CreatedAt, rec.ExpiresAt)
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
		WHERE expires_at <= $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}
