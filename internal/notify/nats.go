package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nats-io/nats.go"
)

// NotificationSubject is the NATS subject notifications are published on
const NotificationSubject = "ledger.notifications"

// NATSSink publishes notification envelopes to NATS
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink creates a sink publishing on subject (NotificationSubject when empty)
func NewNATSSink(conn *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = NotificationSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Send(_ context.Context, n domain.Notification, at time.Time) error {
	data, err := domain.EncodeNotification(n, at)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
