package wallet

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/walletledger/internal/events"
	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/fastprodman/walletledger/internal/infra/pgtestutil"
	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
)

type backend struct {
	name string
	open func(t *testing.T) (*sql.DB, Repos)
}

var backends = []backend{
	{
		name: "sqlite",
		open: func(t *testing.T) (*sql.DB, Repos) {
			db := sqliteutils.NewTestDB(t)

			return db, SQLiteRepos(db)
		},
	},
	{
		name: "postgres",
		open: func(t *testing.T) (*sql.DB, Repos) {
			if testing.Short() {
				t.Skip("postgres tests skipped in short mode")
			}

			db := pgtestutil.NewTestDB(t)

			return db, PostgresRepos(db)
		},
	},
}

// forEachBackend runs fn once per store with a fresh database.
func forEachBackend(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Helper()

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			db, repos := b.open(t)
			fn(t, newTestEnv(t, db, repos))
		})
	}
}

type testEnv struct {
	db        *sql.DB
	repos     Repos
	svc       *Service
	clock     *fakeClock
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T, db *sql.DB, repos Repos, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		db:        db,
		repos:     repos,
		clock:     &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}

	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithClock(env.clock.Now),
		WithPublisher(env.publisher),
	}, opts...)

	env.svc = New(db, repos, opts...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = env.svc.Close(ctx)
	})

	return env
}

// drain waits until queued events have reached the publisher.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()

	require.NoError(t, e.svc.Close(t.Context()))
}

func (e *testEnv) holder(t *testing.T, name string) uint64 {
	t.Helper()

	u, err := e.svc.CreateHolder(t.Context(), name)
	require.NoError(t, err)

	return u.ID
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionCompleted
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.TransactionCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)

	return p.err
}

func (p *recordingPublisher) Events() []events.TransactionCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.TransactionCompleted(nil), p.events...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func newSQLiteEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db := sqliteutils.NewTestDB(t)

	return newTestEnv(t, db, SQLiteRepos(db), opts...)
}
