package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinels matched with errors.Is. The typed errors below unwrap to them.
var (
	ErrDuplicateAccount        = errors.New("account already exists")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountNotFoundOnUpdate = errors.New("account not found on update")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrSameAccount             = errors.New("cannot transfer to same account")
)

// DuplicateAccountError is returned when creating an id that is already taken
type DuplicateAccountError struct {
	AccountID string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account id %s already exists", e.AccountID)
}

func (e *DuplicateAccountError) Unwrap() error { return ErrDuplicateAccount }

// AccountNotFoundError is returned when a transfer or lookup references an unknown account
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// AccountNotFoundOnUpdateError means an account disappeared between lookup and update.
// The store has no multi-key transactions, so a failure on the second update of a
// transfer leaves the first one applied.
type AccountNotFoundOnUpdateError struct {
	AccountID string
}

func (e *AccountNotFoundOnUpdateError) Error() string {
	return fmt.Sprintf("updating account %s failed: account does not exist", e.AccountID)
}

func (e *AccountNotFoundOnUpdateError) Unwrap() error { return ErrAccountNotFoundOnUpdate }

// InvalidAmountError is returned for amounts that are not strictly positive
// (or, for opening balances, negative)
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s", e.Amount.String())
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InsufficientFundsError is returned when the source balance cannot cover the amount
type InsufficientFundsError struct {
	AccountID string
	Balance   decimal.Decimal
	Amount    decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s: balance %s, requested %s",
		e.AccountID, e.Balance.String(), e.Amount.String())
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Error codes carried in API and command responses
const (
	CodeDuplicateAccount  = "duplicate_account"
	CodeAccountNotFound   = "account_not_found"
	CodeInvalidAmount     = "invalid_amount"
	CodeSameAccount       = "same_account"
	CodeInsufficientFunds = "insufficient_funds"
	CodeUpdateFailed      = "update_failed"
	CodeInvalidRequest    = "invalid_request"
	CodeInternal          = "internal_error"
)

// ErrorCode maps an error to its stable machine-readable code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateAccount):
		return CodeDuplicateAccount
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrSameAccount):
		return CodeSameAccount
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrAccountNotFoundOnUpdate):
		return CodeUpdateFailed
	default:
		return CodeInternal
	}
}
