package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

func (r *accountsRepo) LockByUser(ctx context.Context, tx *sql.Tx, userID uint64) (models.Account, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)

	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, accounts.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("lock/get account: %w", err)
	}

	return acc, nil
}

func scanAccount(row rowScanner) (models.Account, error) {
	var acc models.Account

	err := row.Scan(&acc.ID, &acc.UserID, &acc.Balance, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}

	return acc, nil
}
