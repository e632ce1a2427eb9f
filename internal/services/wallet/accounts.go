package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/walletledger/internal/infra/sqltx"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

// EnsureAccount returns the holder's account, creating it with a zero
// balance on first use.
func (s *Service) EnsureAccount(ctx context.Context, userID uint64) (models.Account, error) {
	err := checkUserID(userID)
	if err != nil {
		return models.Account{}, err
	}

	acc, err := s.repos.Accounts.GetByUser(ctx, userID)
	if err == nil {
		return acc, nil
	}

	if !errors.Is(err, accounts.ErrAccountNotFound) {
		return models.Account{}, fmt.Errorf("get account: %w", s.classify(err))
	}

	err = s.retry.run(ctx, func(int) (bool, error) {
		err := sqltx.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
			err := s.repos.Users.Exists(ctx, tx, userID)
			if err != nil {
				return fmt.Errorf("check user exists: %w", err)
			}

			return s.repos.Accounts.Ensure(ctx, tx, userID, s.clock())
		})
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return false, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
			}

			// a lost commit here is harmless: Ensure is idempotent
			err = s.classify(err)

			return ctx.Err() == nil && IsRetryable(err), err
		}

		return false, nil
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("ensure account: %w", err)
	}

	acc, err = s.repos.Accounts.GetByUser(ctx, userID)
	if err != nil {
		return models.Account{}, fmt.Errorf("get account: %w", s.classify(err))
	}

	return acc, nil
}

// GetBalance returns the account with its current balance. Querying the
// balance of a holder without an account creates an empty one.
func (s *Service) GetBalance(ctx context.Context, userID uint64) (models.Account, error) {
	return s.EnsureAccount(ctx, userID)
}

// GetAccount is a read-only lookup. It returns ErrAccountNotFound when the
// holder exists but never had an account.
func (s *Service) GetAccount(ctx context.Context, userID uint64) (models.Account, error) {
	err := checkUserID(userID)
	if err != nil {
		return models.Account{}, err
	}

	acc, err := s.repos.Accounts.GetByUser(ctx, userID)
	if err == nil {
		return acc, nil
	}

	if !errors.Is(err, accounts.ErrAccountNotFound) {
		return models.Account{}, fmt.Errorf("get account: %w", s.classify(err))
	}

	err = s.requireUser(ctx, userID)
	if err != nil {
		return models.Account{}, err
	}

	return models.Account{}, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
}
