package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull        = errors.New("event queue full")
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// Dispatcher hands events to a Publisher from a single background
// goroutine, so Publish never waits on the broker. The queue is bounded:
// when it is full the event is rejected rather than blocking the caller.
// Events leave in the order they were accepted.
type Dispatcher struct {
	next    Publisher
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan TransactionCompleted
	done   chan struct{}
}

// NewDispatcher starts the delivery goroutine. Each delivery gets its own
// timeout; failures are logged and dropped.
func NewDispatcher(next Publisher, logger *slog.Logger, buffer int, timeout time.Duration) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}

	d := &Dispatcher{
		next:    next,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan TransactionCompleted, buffer),
		done:    make(chan struct{}),
	}

	go d.run()

	return d
}

// Publish enqueues ev. It ignores ctx: delivery outlives the request.
func (d *Dispatcher) Publish(_ context.Context, ev TransactionCompleted) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the queued ones are
// delivered or ctx ends. It is safe to call more than once.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()

	if !d.closed {
		d.closed = true
		close(d.queue)
	}

	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain events: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev TransactionCompleted) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.next.Publish(ctx, ev)
	if err != nil {
		d.logger.Warn("publish transaction event",
			"tx_id", ev.TransactionID, "user_id", ev.UserID, "error", err)
	}
}
