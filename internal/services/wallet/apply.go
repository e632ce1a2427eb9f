package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/events"
	"github.com/fastprodman/walletledger/internal/infra/sqltx"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/idempotency"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

const (
	amountScale          = 2
	maxDescriptionLength = 255
	maxTokenLength       = 128
)

// MaxAmount is the exclusive upper bound for amounts and balances.
var MaxAmount = decimal.New(1, 18)

// Operation is a request to change one account's balance.
type Operation struct {
	UserID      uint64
	Kind        models.Kind
	Amount      decimal.Decimal
	Description string
	// IdempotencyToken is optional. Repeating an operation with the same
	// token returns the first result instead of applying it again.
	IdempotencyToken string
}

type Result struct {
	Transaction models.Transaction
	// Replayed is set when the transaction was produced by an earlier
	// request carrying the same idempotency token.
	Replayed bool
}

func (s *Service) Credit(ctx context.Context, userID uint64, amount decimal.Decimal, description, token string) (Result, error) {
	return s.Apply(ctx, Operation{
		UserID:           userID,
		Kind:             models.KindCredit,
		Amount:           amount,
		Description:      description,
		IdempotencyToken: token,
	})
}

func (s *Service) Debit(ctx context.Context, userID uint64, amount decimal.Decimal, description, token string) (Result, error) {
	return s.Apply(ctx, Operation{
		UserID:           userID,
		Kind:             models.KindDebit,
		Amount:           amount,
		Description:      description,
		IdempotencyToken: token,
	})
}

// Apply runs the full mutation flow:
//
// 1) Validate the operation.
// 2) Replay the stored result if the token was already used.
// 3) In one DB transaction: check the holder, lock the account, compute the
// new balance, update it with a version check, append the ledger entry and
// record the token.
// 4) Publish the committed transaction.
//
// Conflicts and transient store failures are retried per the RetryPolicy.
func (s *Service) Apply(ctx context.Context, op Operation) (Result, error) {
	op, err := normalize(op)
	if err != nil {
		return Result{}, err
	}

	err = checkUserID(op.UserID)
	if err != nil {
		return Result{}, err
	}

	var res Result

	err = s.retry.run(ctx, func(attempt int) (bool, error) {
		r, err := s.applyOnce(ctx, op)
		if err != nil {
			retry := s.shouldRetry(ctx, op, err)
			if retry {
				s.logger.DebugContext(ctx, "retrying mutation",
					"user_id", op.UserID, "attempt", attempt, "error", err)
			}

			return retry, err
		}

		res = r

		return false, nil
	})
	if err != nil {
		var insufficient *InsufficientFundsError
		if errors.As(err, &insufficient) {
			s.logger.WarnContext(ctx, "debit rejected",
				"user_id", op.UserID,
				"available", insufficient.Available.StringFixed(amountScale),
				"requested", insufficient.Requested.StringFixed(amountScale))

			return Result{}, insufficient
		}

		return Result{}, fmt.Errorf("apply %s: %w", strings.ToLower(string(op.Kind)), err)
	}

	return res, nil
}

func normalize(op Operation) (Operation, error) {
	if !op.Kind.Valid() {
		return op, fmt.Errorf("%w: %q", ErrInvalidKind, op.Kind)
	}

	switch {
	case !op.Amount.IsPositive():
		return op, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	case !op.Amount.Equal(op.Amount.Truncate(amountScale)):
		return op, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, amountScale)
	case op.Amount.GreaterThanOrEqual(MaxAmount):
		return op, fmt.Errorf("%w: must be below %s", ErrInvalidAmount, MaxAmount)
	}

	op.Amount = op.Amount.Round(amountScale)
	op.Description = strings.TrimSpace(op.Description)

	if utf8.RuneCountInString(op.Description) > maxDescriptionLength {
		return op, fmt.Errorf("%w: longer than %d characters", ErrInvalidDescription, maxDescriptionLength)
	}

	if !printable(op.Description) {
		return op, fmt.Errorf("%w: contains control characters", ErrInvalidDescription)
	}

	if op.Description == "" {
		op.Description = defaultDescription(op.Kind, op.Amount)
	}

	if utf8.RuneCountInString(op.IdempotencyToken) > maxTokenLength {
		return op, fmt.Errorf("%w: longer than %d characters", ErrInvalidToken, maxTokenLength)
	}

	if !printable(op.IdempotencyToken) {
		return op, fmt.Errorf("%w: contains control characters", ErrInvalidToken)
	}

	return op, nil
}

func defaultDescription(kind models.Kind, amount decimal.Decimal) string {
	if kind == models.KindDebit {
		return "Withdrew funds: $" + amount.StringFixed(amountScale)
	}

	return "Added funds: $" + amount.StringFixed(amountScale)
}

func (s *Service) applyOnce(ctx context.Context, op Operation) (Result, error) {
	now := s.clock()

	if op.IdempotencyToken != "" {
		rec, err := s.repos.Idempotency.Lookup(ctx, op.IdempotencyToken, now)
		if err == nil {
			return s.replay(ctx, op, rec)
		}

		if !errors.Is(err, idempotency.ErrRecordNotFound) {
			return Result{}, fmt.Errorf("lookup token: %w", s.classify(err))
		}
	}

	var (
		txn      models.Transaction
		existing *models.IdempotencyRecord
	)

	err := sqltx.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		err := s.repos.Users.Exists(ctx, tx, op.UserID)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}

		if op.IdempotencyToken != "" {
			rec, err := s.repos.Idempotency.LookupTx(ctx, tx, op.IdempotencyToken, now)
			if err == nil {
				existing = &rec

				return nil
			}

			if !errors.Is(err, idempotency.ErrRecordNotFound) {
				return fmt.Errorf("lookup token: %w", err)
			}
		}

		txn, err = s.mutate(ctx, tx, op, now)

		return err
	})
	if err != nil {
		return Result{}, s.classifyTxError(err, op)
	}

	if existing != nil {
		return s.replay(ctx, op, *existing)
	}

	s.logger.InfoContext(ctx, "transaction applied",
		"user_id", txn.UserID,
		"tx_id", txn.ID,
		"kind", txn.Kind,
		"amount", txn.Amount.StringFixed(amountScale),
		"balance", txn.BalanceAfter.StringFixed(amountScale),
		"sequence", txn.Sequence)

	s.publish(ctx, txn)

	return Result{Transaction: txn}, nil
}

// mutate runs inside the DB transaction, after the holder check.
func (s *Service) mutate(ctx context.Context, tx *sql.Tx, op Operation, now time.Time) (models.Transaction, error) {
	acc, err := s.lockAccount(ctx, tx, op, now)
	if err != nil {
		return models.Transaction{}, err
	}

	balance := acc.Balance.Add(op.Kind.Sign(op.Amount))

	if balance.IsNegative() {
		return models.Transaction{}, &InsufficientFundsError{
			UserID:    op.UserID,
			Available: acc.Balance,
			Requested: op.Amount,
		}
	}

	if balance.GreaterThanOrEqual(MaxAmount) {
		return models.Transaction{}, fmt.Errorf("%w: balance would reach %s", ErrInvalidAmount, MaxAmount)
	}

	err = s.repos.Accounts.UpdateBalance(ctx, tx, acc.ID, balance, acc.Version, now)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update balance: %w", err)
	}

	txn := models.Transaction{
		ID:           s.newID(),
		AccountID:    acc.ID,
		UserID:       op.UserID,
		Kind:         op.Kind,
		Amount:       op.Amount,
		BalanceAfter: balance,
		Sequence:     acc.Version + 1,
		Status:       models.StatusSuccess,
		Description:  op.Description,
		CreatedAt:    now,
	}

	err = s.repos.Transactions.Insert(ctx, tx, txn)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if op.IdempotencyToken != "" {
		err = s.repos.Idempotency.Record(ctx, tx, models.IdempotencyRecord{
			Token:         op.IdempotencyToken,
			TransactionID: txn.ID,
			UserID:        op.UserID,
			Kind:          op.Kind,
			Amount:        op.Amount,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.idempotencyTTL),
		})
		if err != nil {
			return models.Transaction{}, fmt.Errorf("record token: %w", err)
		}
	}

	return txn, nil
}

// lockAccount returns the account row locked for the rest of tx. Credits
// create the account on first use; a debit of a missing account is
// rejected as insufficient funds and creates nothing.
func (s *Service) lockAccount(ctx context.Context, tx *sql.Tx, op Operation, now time.Time) (models.Account, error) {
	if op.Kind == models.KindCredit {
		err := s.repos.Accounts.Ensure(ctx, tx, op.UserID, now)
		if err != nil {
			return models.Account{}, fmt.Errorf("ensure account: %w", err)
		}
	}

	acc, err := s.repos.Accounts.LockByUser(ctx, tx, op.UserID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) && op.Kind == models.KindDebit {
			return models.Account{}, &InsufficientFundsError{
				UserID:    op.UserID,
				Available: decimal.Zero,
				Requested: op.Amount,
			}
		}

		return models.Account{}, fmt.Errorf("lock account: %w", err)
	}

	return acc, nil
}

func (s *Service) replay(ctx context.Context, op Operation, rec models.IdempotencyRecord) (Result, error) {
	if !rec.Matches(op.UserID, op.Kind, op.Amount) {
		return Result{}, fmt.Errorf("%w: token %q", ErrIdempotencyMismatch, op.IdempotencyToken)
	}

	txn, err := s.repos.Transactions.Get(ctx, rec.TransactionID)
	if err != nil {
		return Result{}, fmt.Errorf("load replayed transaction: %w", s.classify(err))
	}

	s.logger.DebugContext(ctx, "idempotent replay",
		"user_id", op.UserID, "tx_id", txn.ID)

	return Result{Transaction: txn, Replayed: true}, nil
}

func (s *Service) classifyTxError(err error, op Operation) error {
	var insufficient *InsufficientFundsError

	switch {
	case errors.As(err, &insufficient):
		return insufficient
	case errors.Is(err, users.ErrUserNotFound):
		return fmt.Errorf("%w: %d", ErrUnknownUser, op.UserID)
	case errors.Is(err, ErrInvalidAmount):
		return err
	case errors.Is(err, accounts.ErrVersionConflict),
		errors.Is(err, idempotency.ErrTokenTaken),
		errors.Is(err, transactions.ErrDuplicateTransaction):
		return fmt.Errorf("%w: %w", ErrCommitConflict, err)
	case errors.Is(err, sqltx.ErrCommitFailed):
		if s.repos.IsConflict != nil && s.repos.IsConflict(err) {
			return fmt.Errorf("%w: %w", ErrCommitConflict, err)
		}

		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return s.classify(err)
	}
}

// shouldRetry allows a retry after a failed COMMIT only when the token
// makes it safe: if the commit did land, the next attempt replays it.
func (s *Service) shouldRetry(ctx context.Context, op Operation, err error) bool {
	if ctx.Err() != nil || !IsRetryable(err) {
		return false
	}

	if errors.Is(err, sqltx.ErrCommitFailed) && !errors.Is(err, ErrCommitConflict) {
		return op.IdempotencyToken != ""
	}

	return true
}

// publish queues the event and returns at once; delivery happens in the
// background.
func (s *Service) publish(ctx context.Context, txn models.Transaction) {
	if s.dispatcher == nil {
		return
	}

	err := s.dispatcher.Publish(ctx, events.FromTransaction(txn))
	if err != nil {
		s.logger.WarnContext(ctx, "queue transaction event",
			"tx_id", txn.ID, "error", err)
	}
}
