package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

func (r *accountsRepo) UpdateBalance(
	ctx context.Context,
	tx *sql.Tx,
	accountID int64,
	balance decimal.Decimal,
	expectedVersion int64,
	now time.Time,
) error {
	if balance.IsNegative() {
		return accounts.ErrNegativeBalance
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $1
		  AND version = $3
	`, accountID, balance, expectedVersion, now)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrVersionConflict
	}

	return nil
}
