package wallet

import (
	"database/sql"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/walletledger/internal/repos/accounts/postgres"
	sqliteaccounts "github.com/fastprodman/walletledger/internal/repos/accounts/sqlite"
	"github.com/fastprodman/walletledger/internal/repos/idempotency"
	pgidempotency "github.com/fastprodman/walletledger/internal/repos/idempotency/postgres"
	sqliteidempotency "github.com/fastprodman/walletledger/internal/repos/idempotency/sqlite"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/walletledger/internal/repos/transactions/postgres"
	sqlitetransactions "github.com/fastprodman/walletledger/internal/repos/transactions/sqlite"
	"github.com/fastprodman/walletledger/internal/repos/users"
	pgusers "github.com/fastprodman/walletledger/internal/repos/users/postgres"
	sqliteusers "github.com/fastprodman/walletledger/internal/repos/users/sqlite"
)

// Repos is the set of dialect-specific repositories the service runs on,
// together with the dialect's error classification.
type Repos struct {
	Users        users.Users
	Accounts     accounts.Accounts
	Transactions transactions.Transactions
	Idempotency  idempotency.Keys

	IsConflict    func(error) bool
	IsUnavailable func(error) bool
}

func PostgresRepos(db *sql.DB) Repos {
	return Repos{
		Users:         pgusers.New(db),
		Accounts:      pgaccounts.New(db),
		Transactions:  pgtransactions.New(db),
		Idempotency:   pgidempotency.New(db),
		IsConflict:    pgutils.IsConflict,
		IsUnavailable: pgutils.IsUnavailable,
	}
}

func SQLiteRepos(db *sql.DB) Repos {
	return Repos{
		Users:         sqliteusers.New(db),
		Accounts:      sqliteaccounts.New(db),
		Transactions:  sqlitetransactions.New(db),
		Idempotency:   sqliteidempotency.New(db),
		IsConflict:    sqliteutils.IsConflict,
		IsUnavailable: sqliteutils.IsUnavailable,
	}
}
