package users

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

func TestUsers_CreateGetExists(t *testing.T) {
	t.Parallel()

	db := sqliteutils.NewTestDB(t)
	repo := New(db)
	ctx := t.Context()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	u, err := repo.Create(ctx, "Alice", now)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	got, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, u.ID+1)
	require.ErrorIs(t, err, users.ErrUserNotFound)

	_, err = repo.Get(ctx, math.MaxUint64)
	require.ErrorIs(t, err, users.ErrUserNotFound)

	tests := []struct {
		name    string
		userID  uint64
		wantErr error
	}{
		{name: "exists", userID: u.ID},
		{name: "missing", userID: u.ID + 100, wantErr: users.ErrUserNotFound},
		{name: "above_int64", userID: math.MaxInt64 + 1, wantErr: users.ErrUserNotFound},
		{name: "max_uint64", userID: math.MaxUint64, wantErr: users.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := db.BeginTx(t.Context(), nil)
			require.NoError(t, err)

			defer func() { _ = tx.Rollback() }()

			err = repo.Exists(t.Context(), tx, tt.userID)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestUsers_NameConstraint(t *testing.T) {
	t.Parallel()

	db := sqliteutils.NewTestDB(t)

	_, err := New(db).Create(t.Context(), "", time.Now())
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n)
}
