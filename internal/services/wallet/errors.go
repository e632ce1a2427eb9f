package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidToken       = errors.New("invalid idempotency token")
	ErrInvalidName        = errors.New("invalid holder name")

	ErrUnknownUser       = errors.New("unknown user")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIdempotencyMismatch is returned when a token is reused for a
	// different user, kind or amount.
	ErrIdempotencyMismatch = errors.New("idempotency token reused with different request")

	// ErrCommitConflict means the mutation lost a race and was not applied.
	ErrCommitConflict   = errors.New("commit conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InsufficientFundsError carries the amounts involved in a rejected debit.
type InsufficientFundsError struct {
	UserID    uint64
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IsRetryable reports whether the same call may succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommitConflict) || errors.Is(err, ErrStoreUnavailable)
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidDescription) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrUnknownUser) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrIdempotencyMismatch)
}
