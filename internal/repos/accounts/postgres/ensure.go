package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ensure relies on the UNIQUE(user_id) constraint, so concurrent callers
// never create two accounts for one user.
func (r *accountsRepo) Ensure(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		VALUES ($1, 0, 0, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	return nil
}
