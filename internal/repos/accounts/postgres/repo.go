package accounts

import (
	"database/sql"

	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const accountColumns = `id, user_id, balance, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}
