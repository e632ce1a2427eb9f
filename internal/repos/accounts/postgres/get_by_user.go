package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

// GetByUser reads without locking; suitable for the balance endpoint.
func (r *accountsRepo) GetByUser(ctx context.Context, userID uint64) (models.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
	`, userID)

	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, accounts.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}
