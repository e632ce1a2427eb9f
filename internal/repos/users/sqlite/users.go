package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(ctx context.Context, name string, createdAt time.Time) (models.User, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, created_at)
		VALUES (?, ?)
	`, name, createdAt)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("last insert id: %w", err)
	}

	return models.User{ID: uint64(id), Name: name, CreatedAt: createdAt}, nil
}

func (r *usersRepo) Get(ctx context.Context, userID uint64) (models.User, error) {
	if userID > math.MaxInt64 {
		return models.User{}, users.ErrUserNotFound
	}

	var u models.User

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM users
		WHERE id = ?
	`, userID).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, users.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

func (r *usersRepo) Exists(ctx context.Context, tx *sql.Tx, userID uint64) error {
	if userID > math.MaxInt64 {
		return users.ErrUserNotFound
	}

	var exists bool

	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return users.ErrUserNotFound
	}

	return nil
}
