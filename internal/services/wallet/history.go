package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/infra/sqltx"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

// History returns up to limit transactions of the holder, newest first.
// A non-positive limit means 100; limits above 1000 are capped.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]models.Transaction, error) {
	err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := s.repos.Transactions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", s.classify(err))
	}

	return list, nil
}

// AuditReport compares the stored balance with the sum of the ledger.
type AuditReport struct {
	UserID          uint64
	AccountID       int64
	Version         int64
	StoredBalance   decimal.Decimal
	ReplayedBalance decimal.Decimal
	Transactions    int
	// FirstMismatch is the sequence of the first entry whose balance_after
	// or position disagrees with the replay; 0 when none does.
	FirstMismatch int64
	Consistent    bool
}

// Audit replays the holder's ledger in sequence order under the account
// lock and checks it against the stored balance and version.
func (s *Service) Audit(ctx context.Context, userID uint64) (AuditReport, error) {
	report := AuditReport{UserID: userID}

	err := checkUserID(userID)
	if err != nil {
		return AuditReport{}, err
	}

	err = sqltx.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		err := s.repos.Users.Exists(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}

		acc, err := s.repos.Accounts.LockByUser(ctx, tx, userID)
		if err != nil && !errors.Is(err, accounts.ErrAccountNotFound) {
			return fmt.Errorf("lock account: %w", err)
		}

		list, err := s.repos.Transactions.ListAll(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("list all transactions: %w", err)
		}

		report.AccountID = acc.ID
		report.Version = acc.Version
		report.StoredBalance = acc.Balance
		report.Transactions = len(list)
		report.ReplayedBalance, report.FirstMismatch = replayLedger(list)

		return nil
	})
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return AuditReport{}, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
		}

		return AuditReport{}, fmt.Errorf("audit: %w", s.classify(err))
	}

	report.Consistent = report.FirstMismatch == 0 &&
		report.StoredBalance.Equal(report.ReplayedBalance) &&
		report.Version == int64(report.Transactions)

	return report, nil
}

// Replay returns the balance obtained by summing the holder's ledger.
func (s *Service) Replay(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	report, err := s.Audit(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	return report.ReplayedBalance, nil
}

// replayLedger sums signed amounts of entries sorted by sequence and
// reports the first entry that breaks the running balance or the 1..n
// numbering.
func replayLedger(list []models.Transaction) (decimal.Decimal, int64) {
	balance := decimal.Zero

	var mismatch int64

	for i, t := range list {
		balance = balance.Add(t.Kind.Sign(t.Amount))

		if mismatch == 0 && (t.Sequence != int64(i+1) || !t.BalanceAfter.Equal(balance)) {
			mismatch = t.Sequence
		}
	}

	return balance, mismatch
}

// PurgeExpiredTokens deletes idempotency records that are past retention.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repos.Idempotency.Purge(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", s.classify(err))
	}

	if n > 0 {
		s.logger.InfoContext(ctx, "expired idempotency tokens purged", "count", n)
	}

	return n, nil
}
