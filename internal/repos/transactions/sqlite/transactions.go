package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
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

func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.AccountID, t.UserID, string(t.Kind), t.Amount.StringFixed(2), t.BalanceAfter.StringFixed(2),
		t.Sequence, string(t.Status), t.Description, t.CreatedAt,
	)
	if err != nil {
		if sqliteutils.IsUniqueViolation(err) {
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (r *transactionsRepo) Get(ctx context.Context, id string) (models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ?
	`, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	list, err := collect(rows)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	if len(list) == 0 {
		return models.Transaction{}, transactions.ErrTransactionNotFound
	}

	return list[0], nil
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ?
		ORDER BY sequence DESC
		LIMIT ?
	`, userID, transactions.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return collect(rows)
}

func (r *transactionsRepo) ListAll(ctx context.Context, tx *sql.Tx, userID uint64) ([]models.Transaction, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ?
		ORDER BY sequence ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}

	return collect(rows)
}

func collect(rows *sql.Rows) ([]models.Transaction, error) {
	//nolint:errcheck
	defer rows.Close()

	out := make([]models.Transaction, 0)

	for rows.Next() {
		var t models.Transaction

		err := rows.Scan(
			&t.ID, &t.AccountID, &t.UserID, &t.Kind, &t.Amount, &t.BalanceAfter,
			&t.Sequence, &t.Status, &t.Description, &t.CreatedAt,
		)
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
