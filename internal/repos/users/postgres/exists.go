package users

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/fastprodman/walletledger/internal/repos/users"
)

func (r *usersRepo) Exists(ctx context.Context, tx *sql.Tx, userID uint64) error {
	if userID > math.MaxInt64 {
		return users.ErrUserNotFound
	}

	var exists bool

	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return users.ErrUserNotFound
	}

	return nil
}
