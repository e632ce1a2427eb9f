package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

// accountsRepo has no row locks to take: transactions are opened with
// BEGIN IMMEDIATE, which already serializes every writer on the database.
type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const selectAccount = `
	SELECT id, user_id, balance, version, created_at, updated_at
	FROM accounts
	WHERE user_id = ?
`

func (r *accountsRepo) Ensure(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		VALUES (?, '0', 0, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now, now)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	return nil
}

func (r *accountsRepo) LockByUser(ctx context.Context, tx *sql.Tx, userID uint64) (models.Account, error) {
	acc, err := scanAccount(tx.QueryRowContext(ctx, selectAccount, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, accounts.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("lock/get account: %w", err)
	}

	return acc, nil
}

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
		SET balance = ?,
		    version = version + 1,
		    updated_at = ?
		WHERE id = ?
		  AND version = ?
	`, balance.StringFixed(2), now, accountID, expectedVersion)
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

func (r *accountsRepo) GetByUser(ctx context.Context, userID uint64) (models.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, accounts.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

func scanAccount(row *sql.Row) (models.Account, error) {
	var acc models.Account

	err := row.Scan(&acc.ID, &acc.UserID, &acc.Balance, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}

	return acc, nil
}
