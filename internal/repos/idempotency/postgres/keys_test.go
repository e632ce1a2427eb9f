package idempotency

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/walletledger/internal/infra/pgtestutil"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/idempotency"
)

const (
	txnA = "00000000-0000-4000-8000-00000000000a"
	txnB = "00000000-0000-4000-8000-00000000000b"
)

var now = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

// seedTransactions creates one holder with two ledger entries for keys to point at.
func seedTransactions(t *testing.T, db *sql.DB) uint64 {
	t.Helper()

	ctx := t.Context()

	var (
		userID    uint64
		accountID int64
	)

	err := db.QueryRowContext(ctx,
		`INSERT INTO users (name, created_at) VALUES ('u', $1) RETURNING id`, now).Scan(&userID)
	require.NoError(t, err)

	err = db.QueryRowContext(ctx,
		`INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		 VALUES ($1, 2, 2, $2, $2) RETURNING id`, userID, now).Scan(&accountID)
	require.NoError(t, err)

	for seq, id := range []string{txnA, txnB} {
		_, err = db.ExecContext(ctx, `
			INSERT INTO transactions (id, account_id, user_id, kind, amount, balance_after, sequence, status, description, created_at)
			VALUES ($1, $2, $3, 'CREDIT', 1, $4, $5, 'SUCCESS', '', $6)`,
			id, accountID, userID, decimal.NewFromInt(int64(seq+1)), seq+1, now)
		require.NoError(t, err)
	}

	return userID
}

func record(userID uint64, token, txnID string, createdAt time.Time, ttl time.Duration) models.IdempotencyRecord {
	return models.IdempotencyRecord{
		Token:         token,
		TransactionID: txnID,
		UserID:        userID,
		Kind:          models.KindCredit,
		Amount:        decimal.RequireFromString("1.00"),
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(ttl),
	}
}

func put(t *testing.T, db *sql.DB, repo *keysRepo, rec models.IdempotencyRecord) error {
	t.Helper()

	tx, err := db.BeginTx(t.Context(), nil)
	require.NoError(t, err)

	err = repo.Record(t.Context(), tx, rec)
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	require.NoError(t, tx.Commit())

	return nil
}

func TestKeys_RecordAndLookup(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	userID := seedTransactions(t, db)

	rec := record(userID, "tok-1", txnA, now, time.Hour)
	require.NoError(t, put(t, db, repo, rec))

	got, err := repo.Lookup(t.Context(), "tok-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, txnA, got.TransactionID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, models.KindCredit, got.Kind)
	assert.True(t, rec.Amount.Equal(got.Amount))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, got.Matches(userID, models.KindCredit, decimal.RequireFromString("1")))

	tx, err := db.BeginTx(t.Context(), nil)
	require.NoError(t, err)

	defer func() { _ = tx.Rollback() }()

	_, err = repo.LookupTx(t.Context(), tx, "tok-1", now)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "unknown_token", token: "missing", at: now},
		{name: "expired_at_boundary", token: "tok-1", at: now.Add(time.Hour)},
		{name: "expired_after", token: "tok-1", at: now.Add(2 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Lookup(t.Context(), tt.token, tt.at)
			require.ErrorIs(t, err, idempotency.ErrRecordNotFound)
		})
	}
}

func TestKeys_RecordConflicts(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	userID := seedTransactions(t, db)

	require.NoError(t, put(t, db, repo, record(userID, "tok", txnA, now, time.Hour)))

	err := put(t, db, repo, record(userID, "tok", txnB, now.Add(30*time.Minute), time.Hour))
	require.ErrorIs(t, err, idempotency.ErrTokenTaken)

	got, err := repo.Lookup(t.Context(), "tok", now.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, txnA, got.TransactionID, "live record must not be replaced")

	later := now.Add(2 * time.Hour)
	require.NoError(t, put(t, db, repo, record(userID, "tok", txnB, later, time.Hour)))

	got, err = repo.Lookup(t.Context(), "tok", later)
	require.NoError(t, err)
	assert.Equal(t, txnB, got.TransactionID, "expired record is reusable")
}

func TestKeys_Purge(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	userID := seedTransactions(t, db)

	require.NoError(t, put(t, db, repo, record(userID, "short", txnA, now, time.Minute)))
	require.NoError(t, put(t, db, repo, record(userID, "long", txnB, now, 24*time.Hour)))

	n, err := repo.Purge(t.Context(), now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Purge(t.Context(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Lookup(t.Context(), "long", now.Add(time.Hour))
	require.NoError(t, err)
}
