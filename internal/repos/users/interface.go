package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type Users interface {
	Create(ctx context.Context, name string, createdAt time.Time) (models.User, error)
	Get(ctx context.Context, userID uint64) (models.User, error)
	Exists(ctx context.Context, tx *sql.Tx, userID uint64) error
}
