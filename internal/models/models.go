// Package models holds the records persisted by the wallet ledger.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a balance mutation.
type Kind string

const (
	KindCredit Kind = "CREDIT"
	KindDebit  Kind = "DEBIT"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

// Sign returns the signed value of amount for this kind.
func (k Kind) Sign(amount decimal.Decimal) decimal.Decimal {
	if k == KindDebit {
		return amount.Neg()
	}

	return amount
}

// Status of a ledger entry. The engine only writes successful entries.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// User is an account holder.
type User struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
}

// Account is the balance-bearing record of one user.
type Account struct {
	ID        int64
	UserID    uint64
	Balance   decimal.Decimal
	Version   int64 // incremented on every mutation
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID           string
	AccountID    int64
	UserID       uint64
	Kind         Kind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Sequence     int64 // account version after this entry
	Status       Status
	Description  string
	CreatedAt    time.Time
}

// IdempotencyRecord maps a client token to the transaction it produced,
// together with the request it was produced for.
type IdempotencyRecord struct {
	Token         string
	TransactionID string
	UserID        uint64
	Kind          Kind
	Amount        decimal.Decimal
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Matches reports whether the record was created for the same logical operation.
func (r IdempotencyRecord) Matches(userID uint64, kind Kind, amount decimal.Decimal) bool {
	return r.UserID == userID && r.Kind == kind && r.Amount.Equal(amount)
}
