package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
)

// LogSink writes notifications to the structured log in place of e-mail delivery
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, n domain.Notification, at time.Time) error {
	s.logger.InfoContext(ctx, "transfer notification",
		slog.String("account_id", n.AccountID),
		slog.String("balance", n.Balance.String()),
		slog.String("message", n.Message),
		slog.Time("at", at),
	)
	return nil
}
