// Package store holds the authoritative in-memory account balances.
package store

import (
	"sort"
	"sync"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountStore is a concurrency-safe map of account id to account.
// Accounts are stored and returned by value, so callers never share memory
// with the store; every balance change has to go through Update.
type AccountStore struct {
	accounts map[string]domain.Account
	mu       sync.RWMutex
}

// NewAccountStore creates an empty store
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]domain.Account),
	}
}

// Create inserts the account only if its id is not present yet
func (s *AccountStore) Create(account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return &domain.DuplicateAccountError{AccountID: account.ID}
	}

	s.accounts[account.ID] = account
	return nil
}

// Get returns a snapshot of the account
func (s *AccountStore) Get(id string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[id]
	return account, exists
}

// Update replaces an existing account. It never creates one.
func (s *AccountStore) Update(account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; !exists {
		return &domain.AccountNotFoundOnUpdateError{AccountID: account.ID}
	}

	s.accounts[account.ID] = account
	return nil
}

// Clear removes every account (for reset/testing)
func (s *AccountStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]domain.Account)
}

// List returns a copy of all accounts ordered by id
func (s *AccountStore) List() []domain.Account {
	s.mu.RLock()
	result := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		result = append(result, account)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of accounts
func (s *AccountStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// TotalBalance returns the sum of all account balances
func (s *AccountStore) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, account := range s.accounts {
		total = total.Add(account.Balance)
	}
	return total
}
