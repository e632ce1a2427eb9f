package transactions

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const transactionColumns = `id, account_id, user_id, kind, amount, balance_after,
	sequence, status, description, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction

	err := row.Scan(
		&t.ID, &t.AccountID, &t.UserID, &t.Kind, &t.Amount, &t.BalanceAfter,
		&t.Sequence, &t.Status, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	return t, nil
}

func collect(rows *sql.Rows) ([]models.Transaction, error) {
	//nolint:errcheck
	defer rows.Close()

	out := make([]models.Transaction, 0)

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, t)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}
