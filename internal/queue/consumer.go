package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nathanyu/account-ledger/internal/engine"
	"github.com/nathanyu/account-ledger/internal/telemetry"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transferer executes transfer commands
type Transferer interface {
	Transfer(ctx context.Context, cmd domain.TransferCommand) (engine.TransferResult, error)
}

// CommandConsumer serves transfer commands received on CommandSubject
type CommandConsumer struct {
	conn         *nats.Conn
	service      Transferer
	logger       *slog.Logger
	subscription *nats.Subscription

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewCommandConsumer creates a consumer executing commands through service
func NewCommandConsumer(conn *nats.Conn, service Transferer, logger *slog.Logger) *CommandConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandConsumer{
		conn:    conn,
		service: service,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to CommandSubject
func (c *CommandConsumer) Start() error {
	sub, err := c.conn.Subscribe(CommandSubject, c.handleCommand)
	if err != nil {
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}

	c.subscription = sub
	c.logger.Info("command consumer started", slog.String("subject", CommandSubject))
	return nil
}

// Stop unsubscribes and waits for in-flight commands
func (c *CommandConsumer) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.cancel()

		if c.subscription != nil {
			err = c.subscription.Unsubscribe()
		}

		c.wg.Wait()
	})
	return err
}

func (c *CommandConsumer) handleCommand(msg *nats.Msg) {
	c.wg.Add(1)
	defer c.wg.Done()

	ctx, span := telemetry.StartSpan(c.ctx, "queue.handleCommand",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination", CommandSubject),
		),
	)
	defer span.End()

	telemetry.NATSMessagesReceived.WithLabelValues(CommandSubject).Inc()

	resp := c.process(ctx, msg.Data)
	if !resp.Success {
		span.SetStatus(codes.Error, resp.Error)
	}

	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to marshal command response", slog.String("error", err.Error()))
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.ErrorContext(ctx, "failed to respond to command", slog.String("error", err.Error()))
	}
}

// process decodes and executes one command payload
func (c *CommandConsumer) process(ctx context.Context, data []byte) CommandResponse {
	var cmd domain.TransferCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.logger.WarnContext(ctx, "failed to unmarshal command", slog.String("error", err.Error()))
		return CommandResponse{
			Error:     "invalid command format",
			ErrorCode: domain.CodeInvalidRequest,
		}
	}

	if cmd.FromAccount == "" || cmd.ToAccount == "" {
		return CommandResponse{
			TransactionID: cmd.TransactionID,
			Error:         "from_account and to_account are required",
			ErrorCode:     domain.CodeInvalidRequest,
		}
	}

	result, err := c.service.Transfer(ctx, cmd)
	if err != nil {
		c.logger.InfoContext(ctx, "transfer command rejected",
			slog.String("transaction_id", result.TransactionID),
			slog.String("error", err.Error()),
		)
		return CommandResponse{
			TransactionID: result.TransactionID,
			Error:         err.Error(),
			ErrorCode:     domain.ErrorCode(err),
		}
	}

	return CommandResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		From:          &result.From,
		To:            &result.To,
	}
}
