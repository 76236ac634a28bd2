package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nathanyu/account-ledger/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AccountStore is the storage the engine reads and writes balances through
type AccountStore interface {
	Create(account domain.Account) error
	Get(id string) (domain.Account, bool)
	Update(account domain.Account) error
	Clear()
	List() []domain.Account
	Count() int
	TotalBalance() decimal.Decimal
}

// Notifier informs an account owner about a completed transfer.
// Implementations must not block the caller for delivery.
type Notifier interface {
	Notify(ctx context.Context, account domain.Account, message string)
}

// TransferResult is the outcome of a successful transfer
type TransferResult struct {
	TransactionID string         `json:"transaction_id"`
	From          domain.Account `json:"from"`
	To            domain.Account `json:"to"`
}

// TransferService executes transfers between accounts of an AccountStore.
// Transfers touching a common account are serialized by striped locks;
// transfers on disjoint accounts run in parallel.
type TransferService struct {
	store    AccountStore
	notifier Notifier
	locks    *lockStripes
	logger   *slog.Logger
}

// Option configures a TransferService
type Option func(*TransferService)

// WithLockStripes sets the number of lock stripes (default 256)
func WithLockStripes(n int) Option {
	return func(s *TransferService) {
		s.locks = newLockStripes(n)
	}
}

// WithLogger sets the logger used for transfer faults
func WithLogger(logger *slog.Logger) Option {
	return func(s *TransferService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Account, string) {}

// NewTransferService creates a new transfer service. A nil notifier disables notifications.
func NewTransferService(store AccountStore, notifier Notifier, opts ...Option) *TransferService {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	s := &TransferService{
		store:    store,
		notifier: notifier,
		locks:    newLockStripes(defaultLockStripes),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount opens an account with the given balance
func (s *TransferService) CreateAccount(ctx context.Context, id string, balance decimal.Decimal) (domain.Account, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.CreateAccount",
		trace.WithAttributes(
			attribute.String("account_id", id),
			attribute.String("balance", balance.String()),
		),
	)
	defer span.End()

	if balance.IsNegative() {
		err := &domain.InvalidAmountError{Amount: balance}
		span.SetStatus(codes.Error, err.Error())
		return domain.Account{}, err
	}

	account := domain.NewAccount(id, balance)
	if err := s.store.Create(account); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Account{}, err
	}

	telemetry.AccountBalanceGauge.WithLabelValues(id).Set(balance.InexactFloat64())
	telemetry.TotalBalanceGauge.Add(balance.InexactFloat64())
	telemetry.AccountCount.Inc()

	s.logger.DebugContext(ctx, "account created",
		slog.String("account_id", id),
		slog.String("balance", balance.String()),
	)
	return account, nil
}

// GetAccount returns a snapshot of the account
func (s *TransferService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, ok := s.store.Get(id)
	if !ok {
		return domain.Account{}, &domain.AccountNotFoundError{AccountID: id}
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by id
func (s *TransferService) ListAccounts(ctx context.Context) []domain.Account {
	return s.store.List()
}

// TotalBalance returns the sum of all balances
func (s *TransferService) TotalBalance(ctx context.Context) decimal.Decimal {
	return s.store.TotalBalance()
}

// ClearAccounts removes every account. It waits for in-flight transfers so a
// reset never lands between the two updates of a transfer.
func (s *TransferService) ClearAccounts(ctx context.Context) {
	unlock := s.locks.lockAll()
	s.store.Clear()
	unlock()

	telemetry.AccountBalanceGauge.Reset()
	telemetry.TotalBalanceGauge.Set(0)
	telemetry.AccountCount.Set(0)

	s.logger.InfoContext(ctx, "all accounts cleared")
}

// Transfer moves cmd.Amount from cmd.FromAccount to cmd.ToAccount.
// Either both balances change or neither does; on success both owners are notified.
func (s *TransferService) Transfer(ctx context.Context, cmd domain.TransferCommand) (TransferResult, error) {
	start := time.Now()
	if cmd.TransactionID == "" {
		cmd.TransactionID = uuid.Must(uuid.NewV7()).String()
	}

	ctx, span := telemetry.StartSpan(ctx, "engine.Transfer",
		trace.WithAttributes(
			attribute.String("transaction_id", cmd.TransactionID),
			attribute.String("from_account", cmd.FromAccount),
			attribute.String("to_account", cmd.ToAccount),
			attribute.String("amount", cmd.Amount.String()),
		),
	)
	defer span.End()

	result, err := s.execute(ctx, cmd)
	telemetry.TransferProcessingDuration.Observe(time.Since(start).Seconds())
	recordTransferMetrics(cmd.Amount, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TransferResult{TransactionID: cmd.TransactionID}, err
	}

	telemetry.AccountBalanceGauge.WithLabelValues(result.From.ID).Set(result.From.Balance.InexactFloat64())
	telemetry.AccountBalanceGauge.WithLabelValues(result.To.ID).Set(result.To.Balance.InexactFloat64())
	span.SetStatus(codes.Ok, "")

	s.notifyParticipants(ctx, cmd.Amount, result)
	return result, nil
}

// execute runs the read-validate-write sequence while holding both accounts' stripes
func (s *TransferService) execute(ctx context.Context, cmd domain.TransferCommand) (TransferResult, error) {
	unlock := s.locks.lockPair(cmd.FromAccount, cmd.ToAccount)
	defer unlock()

	from, fromOK := s.store.Get(cmd.FromAccount)
	to, toOK := s.store.Get(cmd.ToAccount)
	if !fromOK || !toOK {
		s.logger.WarnContext(ctx, "account is not available for transfer",
			slog.String("transaction_id", cmd.TransactionID),
			slog.String("from_account", cmd.FromAccount),
			slog.Bool("from_found", fromOK),
			slog.String("to_account", cmd.ToAccount),
			slog.Bool("to_found", toOK),
		)
		missing := cmd.FromAccount
		if fromOK {
			missing = cmd.ToAccount
		}
		return TransferResult{}, &domain.AccountNotFoundError{AccountID: missing}
	}

	if !cmd.Amount.IsPositive() {
		return TransferResult{}, &domain.InvalidAmountError{Amount: cmd.Amount}
	}

	if from.ID == to.ID {
		return TransferResult{}, domain.ErrSameAccount
	}

	if from.Balance.LessThan(cmd.Amount) {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("failure_reason", "insufficient_funds"),
				attribute.String("current_balance", from.Balance.String()),
			)
		}
		return TransferResult{}, &domain.InsufficientFundsError{
			AccountID: from.ID,
			Balance:   from.Balance,
			Amount:    cmd.Amount,
		}
	}

	debited := domain.NewAccount(from.ID, from.Balance.Sub(cmd.Amount))
	credited := domain.NewAccount(to.ID, to.Balance.Add(cmd.Amount))

	if err := s.store.Update(debited); err != nil {
		telemetry.UpdateFaultsTotal.Inc()
		s.logger.ErrorContext(ctx, "debit update failed, transfer not applied",
			slog.String("transaction_id", cmd.TransactionID),
			slog.String("account_id", debited.ID),
			slog.String("error", err.Error()),
		)
		return TransferResult{}, err
	}

	// No multi-key transaction: if this fails the debit above stays applied.
	if err := s.store.Update(credited); err != nil {
		telemetry.UpdateFaultsTotal.Inc()
		s.logger.ErrorContext(ctx, "credit update failed after debit was applied",
			slog.String("transaction_id", cmd.TransactionID),
			slog.String("debited_account", debited.ID),
			slog.String("credited_account", credited.ID),
			slog.String("amount", cmd.Amount.String()),
			slog.String("error", err.Error()),
		)
		return TransferResult{}, err
	}

	return TransferResult{
		TransactionID: cmd.TransactionID,
		From:          debited,
		To:            credited,
	}, nil
}

// notifyParticipants tells both owners about the transfer. Called without locks held.
func (s *TransferService) notifyParticipants(ctx context.Context, amount decimal.Decimal, result TransferResult) {
	s.notifier.Notify(ctx, result.From,
		fmt.Sprintf("Amount of %s has been debited and sent to account %s", amount.String(), result.To.ID))
	s.notifier.Notify(ctx, result.To,
		fmt.Sprintf("Amount of %s has been credited from account %s", amount.String(), result.From.ID))
}

// recordTransferMetrics records the outcome of a transfer attempt
func recordTransferMetrics(amount decimal.Decimal, err error) {
	status := transferStatus(err)
	telemetry.TransfersTotal.WithLabelValues(status).Inc()
	telemetry.TransferAmount.WithLabelValues(status).Observe(amount.InexactFloat64())
}

func transferStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrSameAccount):
		return "same_account"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountNotFoundOnUpdate):
		return "update_failed"
	default:
		return "failed"
	}
}
