package users

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

func (r *usersRepo) Create(ctx context.Context, name string, createdAt time.Time) (models.User, error) {
	u := models.User{Name: name, CreatedAt: createdAt}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, created_at)
		VALUES ($1, $2)
		RETURNING id
	`, name, createdAt).Scan(&u.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}
