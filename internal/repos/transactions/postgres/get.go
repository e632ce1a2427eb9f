package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

func (r *transactionsRepo) Get(ctx context.Context, id string) (models.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, transactions.ErrTransactionNotFound
		}

		return models.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}
