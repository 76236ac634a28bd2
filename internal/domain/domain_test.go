package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"duplicate", &DuplicateAccountError{AccountID: "A"}, ErrDuplicateAccount, CodeDuplicateAccount},
		{"not found", &AccountNotFoundError{AccountID: "A"}, ErrAccountNotFound, CodeAccountNotFound},
		{"not found on update", &AccountNotFoundOnUpdateError{AccountID: "A"}, ErrAccountNotFoundOnUpdate, CodeUpdateFailed},
		{"invalid amount", &InvalidAmountError{Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount, CodeInvalidAmount},
		{"insufficient funds", &InsufficientFundsError{AccountID: "A"}, ErrInsufficientFunds, CodeInsufficientFunds},
		{"same account", ErrSameAccount, ErrSameAccount, CodeSameAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.code, ErrorCode(tt.err))

			wrapped := fmt.Errorf("handling request: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.code, ErrorCode(wrapped))
		})
	}
}

func TestNotFoundOnUpdateIsDistinctFromNotFound(t *testing.T) {
	err := &AccountNotFoundOnUpdateError{AccountID: "A"}
	assert.False(t, errors.Is(err, ErrAccountNotFound))
}

func TestErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("disk on fire")))
}

func TestInsufficientFundsError_Message(t *testing.T) {
	err := &InsufficientFundsError{
		AccountID: "A",
		Balance:   decimal.RequireFromString("10.5"),
		Amount:    decimal.NewFromInt(11),
	}
	assert.Equal(t, "insufficient funds in account A: balance 10.5, requested 11", err.Error())
}

func TestNotificationEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	n := Notification{
		AccountID: "A",
		Balance:   decimal.RequireFromString("900.10"),
		Message:   "Amount of 99.9 has been debited and sent to account B",
	}

	data, err := EncodeNotification(n, at)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"TransferNotification"`)

	got, gotAt, err := DecodeNotification(data)
	require.NoError(t, err)
	assert.Equal(t, n.AccountID, got.AccountID)
	assert.Equal(t, n.Message, got.Message)
	assert.True(t, n.Balance.Equal(got.Balance))
	assert.True(t, at.Equal(gotAt))
	assert.Equal(t, time.UTC, gotAt.Location())
}

func TestDecodeNotification_UnknownType(t *testing.T) {
	_, _, err := DecodeNotification([]byte(`{"type":"MoneyTransferred","timestamp":"2026-01-01T00:00:00Z","data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown envelope type")
}

func TestDecodeNotification_Malformed(t *testing.T) {
	_, _, err := DecodeNotification([]byte(`not json`))
	assert.Error(t, err)
}

func TestTransferCommand_AmountAcceptsStringOrNumber(t *testing.T) {
	var fromString, fromNumber TransferCommand
	require.NoError(t, json.Unmarshal([]byte(`{"from_account":"A","to_account":"B","amount":"0.1"}`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"from_account":"A","to_account":"B","amount":0.1}`), &fromNumber))

	assert.True(t, decimal.RequireFromString("0.1").Equal(fromString.Amount))
	assert.True(t, fromString.Amount.Equal(fromNumber.Amount))
}
