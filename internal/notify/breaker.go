package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerConfig controls when a sink's circuit opens
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration // how long the circuit stays open
	Logger              *slog.Logger
}

// BreakerSink guards a network sink with a circuit breaker. While the circuit
// is open, sends fail immediately with gobreaker.ErrOpenState.
type BreakerSink struct {
	sink    Sink
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSink wraps sink
func NewBreakerSink(sink Sink, cfg BreakerConfig) *BreakerSink {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "sink-" + sink.Name(),
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cfg.Logger.Warn("notification sink circuit changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerSink{
		sink:    sink,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *BreakerSink) Name() string { return s.sink.Name() }

func (s *BreakerSink) Send(ctx context.Context, n domain.Notification, at time.Time) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.sink.Send(ctx, n, at)
	})
	return err
}

// State reports the circuit state
func (s *BreakerSink) State() gobreaker.State {
	return s.breaker.State()
}
