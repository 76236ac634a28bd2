package queue

import (
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nats-io/nats.go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CommandSubject is the request/reply subject transfer commands are submitted on
const CommandSubject = "ledger.commands"

// CommandResponse is the reply to a transfer command
type CommandResponse struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Error         string          `json:"error,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	From          *domain.Account `json:"from,omitempty"`
	To            *domain.Account `json:"to,omitempty"`
}

// Connect opens a NATS connection with reconnect handling
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return conn, nil
}

// Client submits transfer commands over NATS
type Client struct {
	conn *nats.Conn
}

// NewClient wraps an open connection
func NewClient(conn *nats.Conn) *Client {
	return &Client{conn: conn}
}

// SubmitTransfer publishes a transfer command and waits for the reply
func (c *Client) SubmitTransfer(cmd domain.TransferCommand, timeout time.Duration) (*CommandResponse, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	msg, err := c.conn.Request(CommandSubject, data, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to submit command: %w", err)
	}

	var resp CommandResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Close drains and closes the connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Drain()
		c.conn.Close()
	}
}
