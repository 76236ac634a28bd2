// Package notify delivers post-transfer notifications to account owners.
//
// The transfer engine hands each notification to a Dispatcher, which queues it
// and returns immediately. Worker goroutines deliver queued notifications to
// every configured Sink. Delivery failures, panics and queue overflows are
// logged and counted; they never reach the engine.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nathanyu/account-ledger/internal/telemetry"
)

// Sink is a delivery channel for notifications
type Sink interface {
	Name() string
	Send(ctx context.Context, n domain.Notification, at time.Time) error
}

// Nop discards notifications
type Nop struct{}

// Notify implements engine.Notifier
func (Nop) Notify(context.Context, domain.Account, string) {}

type job struct {
	ctx          context.Context
	notification domain.Notification
	at           time.Time
}

// Dispatcher is an asynchronous, best-effort engine.Notifier
type Dispatcher struct {
	sinks   []Sink
	queue   chan job
	workers int
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// DispatcherConfig sizes the dispatcher
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Logger    *slog.Logger
}

// NewDispatcher creates a dispatcher delivering to all sinks
func NewDispatcher(cfg DispatcherConfig, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan job, cfg.QueueSize),
		workers: cfg.Workers,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Start launches the delivery workers
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.queue {
				d.deliver(j)
			}
		}()
	}
	d.logger.Info("notification dispatcher started",
		slog.Int("workers", d.workers),
		slog.Int("queue_size", cap(d.queue)),
		slog.Int("sinks", len(d.sinks)),
	)
}

// Stop stops accepting notifications and waits for queued ones to be delivered
// until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("notification dispatcher stop: %w", ctx.Err())
		}
	})
	return err
}

// Notify implements engine.Notifier. It never blocks on delivery.
func (d *Dispatcher) Notify(ctx context.Context, account domain.Account, message string) {
	j := job{
		ctx: context.WithoutCancel(ctx),
		notification: domain.Notification{
			AccountID: account.ID,
			Balance:   account.Balance,
			Message:   message,
		},
		at: d.now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(ctx, j, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- j:
	default:
		d.drop(ctx, j, "queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, j job, reason string) {
	for _, sink := range d.sinks {
		telemetry.NotificationsTotal.WithLabelValues(sink.Name(), "dropped").Inc()
	}
	d.logger.WarnContext(ctx, "notification dropped",
		slog.String("reason", reason),
		slog.String("account_id", j.notification.AccountID),
		slog.String("message", j.notification.Message),
	)
}

func (d *Dispatcher) deliver(j job) {
	for _, sink := range d.sinks {
		d.send(sink, j)
	}
}

func (d *Dispatcher) send(sink Sink, j job) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.NotificationsTotal.WithLabelValues(sink.Name(), "failed").Inc()
			d.logger.ErrorContext(j.ctx, "notification sink panicked",
				slog.String("sink", sink.Name()),
				slog.String("account_id", j.notification.AccountID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := sink.Send(j.ctx, j.notification, j.at); err != nil {
		telemetry.NotificationsTotal.WithLabelValues(sink.Name(), "failed").Inc()
		d.logger.ErrorContext(j.ctx, "notification delivery failed",
			slog.String("sink", sink.Name()),
			slog.String("account_id", j.notification.AccountID),
			slog.String("error", err.Error()),
		)
		return
	}
	telemetry.NotificationsTotal.WithLabelValues(sink.Name(), "sent").Inc()
}
