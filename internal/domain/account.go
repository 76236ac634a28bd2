package domain

import "github.com/shopspring/decimal"

// Account is an identity plus its current balance.
// Balances are exact decimals; never convert them to float for arithmetic.
type Account struct {
	ID      string          `json:"account_id"`
	Balance decimal.Decimal `json:"balance"`
}

// NewAccount returns an account with the given opening balance
func NewAccount(id string, balance decimal.Decimal) Account {
	return Account{ID: id, Balance: balance}
}

// TransferCommand represents a transfer request handed to the engine
type TransferCommand struct {
	TransactionID string          `json:"transaction_id"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
}
