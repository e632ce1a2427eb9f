package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

func (r *usersRepo) Get(ctx context.Context, userID uint64) (models.User, error) {
	if userID > math.MaxInt64 {
		return models.User{}, users.ErrUserNotFound
	}

	var u models.User

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, users.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}
