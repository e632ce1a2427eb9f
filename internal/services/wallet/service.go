// Package wallet is the ledger engine: it mutates balances and appends the
// matching transaction records atomically, one account at a time.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fastprodman/walletledger/internal/events"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/users"
)

const (
	DefaultIdempotencyTTL = 24 * time.Hour
	defaultPublishTimeout = 5 * time.Second
	defaultEventBuffer    = 1024

	maxNameLength = 100
)

type Service struct {
	db    *sql.DB
	repos Repos

	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
	publisher      events.Publisher
	dispatcher     *events.Dispatcher
	publishTimeout time.Duration
	eventBuffer    int
	retry          RetryPolicy
	idempotencyTTL time.Duration
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now. Timestamps are stored in UTC with
// microsecond precision whatever the clock returns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithPublisher enables post-commit events. Delivery runs in the
// background; call Close to drain pending events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPublishTimeout bounds each background delivery.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

func New(db *sql.DB, repos Repos, opts ...Option) *Service {
	s := &Service{
		db:             db,
		repos:          repos,
		logger:         slog.Default(),
		now:            time.Now,
		newID:          uuid.NewString,
		publishTimeout: defaultPublishTimeout,
		eventBuffer:    defaultEventBuffer,
		retry:          DefaultRetryPolicy,
		idempotencyTTL: DefaultIdempotencyTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.publisher != nil {
		s.dispatcher = events.NewDispatcher(s.publisher, s.logger, s.eventBuffer, s.publishTimeout)
	}

	return s
}

// Close drains events still waiting for delivery.
func (s *Service) Close(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}

	return s.dispatcher.Close(ctx)
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateHolder registers a new account holder. The name is trimmed and
// must be 1..100 characters long.
func (s *Service) CreateHolder(ctx context.Context, name string) (models.User, error) {
	name = strings.TrimSpace(name)

	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxNameLength {
		return models.User{}, fmt.Errorf("%w: must be 1..%d characters", ErrInvalidName, maxNameLength)
	}

	if !printable(name) {
		return models.User{}, fmt.Errorf("%w: contains control characters", ErrInvalidName)
	}

	u, err := s.repos.Users.Create(ctx, name, s.clock())
	if err != nil {
		return models.User{}, fmt.Errorf("create holder: %w", s.classify(err))
	}

	s.logger.InfoContext(ctx, "holder created", "user_id", u.ID)

	return u, nil
}

// printable reports whether s is valid UTF-8 free of control characters.
// PostgreSQL refuses NUL bytes in text columns.
func printable(s string) bool {
	return utf8.ValidString(s) && strings.IndexFunc(s, unicode.IsControl) < 0
}

// checkUserID rejects ids no holder can have. Ids are signed 64-bit in
// both schemas.
func checkUserID(userID uint64) error {
	if userID == 0 || userID > math.MaxInt64 {
		return fmt.Errorf("%w: %d", ErrUnknownUser, userID)
	}

	return nil
}

// requireUser maps a missing holder to ErrUnknownUser.
func (s *Service) requireUser(ctx context.Context, userID uint64) error {
	err := checkUserID(userID)
	if err != nil {
		return err
	}

	_, err = s.repos.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownUser, userID)
		}

		return fmt.Errorf("get user: %w", s.classify(err))
	}

	return nil
}

// classify maps dialect errors onto the engine's retryable sentinels.
func (s *Service) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case s.repos.IsConflict != nil && s.repos.IsConflict(err):
		return fmt.Errorf("%w: %w", ErrCommitConflict, err)
	case s.repos.IsUnavailable != nil && s.repos.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
