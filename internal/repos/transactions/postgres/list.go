package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

func (r *transactionsRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY sequence DESC
		LIMIT $2
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
		WHERE user_id = $1
		ORDER BY sequence ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}

	return collect(rows)
}
