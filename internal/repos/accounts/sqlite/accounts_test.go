package accounts

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

var now = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, db *sql.DB) uint64 {
	t.Helper()

	res, err := db.ExecContext(t.Context(), `INSERT INTO users (name, created_at) VALUES ('u', ?)`, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)

	return uint64(id)
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(t.Context(), nil)
	require.NoError(t, err)

	fn(tx)

	require.NoError(t, tx.Commit())
}

func TestAccounts_EnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	db := sqliteutils.NewTestDB(t)
	repo := New(db)
	userID := seedUser(t, db)

	_, err := repo.GetByUser(t.Context(), userID)
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.Ensure(t.Context(), tx, userID, now))
		require.NoError(t, repo.Ensure(t.Context(), tx, userID, now))
	})

	acc, err := repo.GetByUser(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, acc.UserID)
	assert.True(t, acc.Balance.IsZero())
	assert.Zero(t, acc.Version)

	var n int
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM accounts`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestAccounts_UpdateBalance(t *testing.T) {
	t.Parallel()

	db := sqliteutils.NewTestDB(t)
	repo := New(db)
	userID := seedUser(t, db)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.Ensure(t.Context(), tx, userID, now))
	})

	tests := []struct {
		name            string
		balance         string
		expectedVersion int64
		wantErr         error
		wantBalance     string
		wantVersion     int64
	}{
		{name: "ok", balance: "10.50", expectedVersion: 0, wantBalance: "10.50", wantVersion: 1},
		{name: "stale_version", balance: "99", expectedVersion: 0, wantErr: accounts.ErrVersionConflict, wantBalance: "10.50", wantVersion: 1},
		{name: "negative", balance: "-1", expectedVersion: 1, wantErr: accounts.ErrNegativeBalance, wantBalance: "10.50", wantVersion: 1},
		{name: "ok_again", balance: "0.01", expectedVersion: 1, wantBalance: "0.01", wantVersion: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTx(t, db, func(tx *sql.Tx) {
				acc, err := repo.LockByUser(t.Context(), tx, userID)
				require.NoError(t, err)

				err = repo.UpdateBalance(t.Context(), tx, acc.ID, decimal.RequireFromString(tt.balance), tt.expectedVersion, now)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				} else {
					require.NoError(t, err)
				}
			})

			acc, err := repo.GetByUser(t.Context(), userID)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantBalance).Equal(acc.Balance), acc.Balance.String())
			assert.Equal(t, tt.wantVersion, acc.Version)
		})
	}
}

func TestAccounts_LockMissing(t *testing.T) {
	t.Parallel()

	db := sqliteutils.NewTestDB(t)
	repo := New(db)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := repo.LockByUser(t.Context(), tx, 404)
		require.ErrorIs(t, err, accounts.ErrAccountNotFound)
	})
}
