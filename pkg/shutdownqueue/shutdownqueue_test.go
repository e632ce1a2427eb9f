package shutdownqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNilTaskIsNoop(t *testing.T) {
	t.Parallel()

	q := New()
	q.Add("nil", nil)

	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Shutdown(t.Context()))
}

func TestLIFOOrder(t *testing.T) {
	t.Parallel()

	q := New()

	var (
		orderMu sync.Mutex
		order   []int
	)

	makeTask := func(n int) Task {
		return func(ctx context.Context) error {
			orderMu.Lock()
			defer orderMu.Unlock()

			order = append(order, n)

			return nil
		}
	}

	for i := 1; i <= 3; i++ {
		q.Add("task", makeTask(i))
	}

	require.NoError(t, q.Shutdown(t.Context()))
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestPanicRecoveryIncludedAndContinues(t *testing.T) {
	t.Parallel()

	q := New()

	var ranAfterPanic atomic.Bool

	q.Add("before", func(ctx context.Context) error {
		ranAfterPanic.Store(true)

		return nil
	})
	q.Add("exploding", func(ctx context.Context) error { panic("boom") })

	err := q.Shutdown(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `panic in shutdown task "exploding": boom`)
	assert.True(t, ranAfterPanic.Load(), "tasks after the panic must still run")
}

func TestEarlyCancelStopsDrain(t *testing.T) {
	t.Parallel()

	q := New()

	errA := errors.New("taskA")

	var ranB atomic.Bool

	gateReady := make(chan struct{})

	q.Add("a", func(ctx context.Context) error { return errA })
	q.Add("b", func(ctx context.Context) error {
		ranB.Store(true)

		return nil
	})
	q.Add("gate", func(ctx context.Context) error {
		close(gateReady)
		<-ctx.Done()

		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)

	go func() {
		errCh <- q.Shutdown(ctx)
	}()

	<-gateReady
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), `"b"`)
	assert.False(t, ranB.Load())
	assert.NotErrorIs(t, err, errA)
}

func TestIdempotentAndRunsOnce(t *testing.T) {
	t.Parallel()

	q := New()

	var count atomic.Int32

	q.Add("count", func(ctx context.Context) error {
		count.Add(1)

		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, q.Shutdown(ctx))
	require.NoError(t, q.Shutdown(ctx))
	assert.Equal(t, int32(1), count.Load())
}

func TestAddAfterShutdownStartedIsIgnored(t *testing.T) {
	t.Parallel()

	q := New()

	started := make(chan struct{})
	unblock := make(chan struct{})

	q.Add("noop", func(ctx context.Context) error { return nil })
	q.Add("blocker", func(ctx context.Context) error {
		close(started)
		<-unblock

		return nil
	})

	done := make(chan struct{})

	go func() {
		_ = q.Shutdown(context.Background())

		close(done)
	}()

	<-started

	var ran atomic.Bool

	q.Add("late", func(ctx context.Context) error {
		ran.Store(true)

		return nil
	})

	close(unblock)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not finish")
	}

	assert.False(t, ran.Load(), "task added after shutdown start must not run")
}

func TestTaskErrorsAreJoinedAndNamed(t *testing.T) {
	t.Parallel()

	q := New()

	err1 := errors.New("alpha")
	err2 := errors.New("beta")

	q.Add("first", func(ctx context.Context) error { return err1 })
	q.Add("second", func(ctx context.Context) error { return err2 })

	err := q.Shutdown(t.Context())
	require.ErrorIs(t, err, err1)
	require.ErrorIs(t, err, err2)
	assert.Contains(t, err.Error(), "shutdown first: alpha")
	assert.Contains(t, err.Error(), "shutdown second: beta")
}
