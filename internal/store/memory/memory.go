// Package memory provides an in-memory implementation of the pipeline store
// boundary. It is safe for concurrent use and suitable for tests and local
// runs; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finstream/bankfeed/internal/pipeline"
)

type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*pipeline.Account
	transactions map[string][]*pipeline.Transaction // keyed by account id
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*pipeline.Account),
		transactions: make(map[string][]*pipeline.Transaction),
	}
}

func (s *Store) FindAccount(ctx context.Context, accountID string) (*pipeline.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (s *Store) FirstAccount(ctx context.Context) (*pipeline.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest *pipeline.Account
	for _, account := range s.accounts {
		if oldest == nil || account.CreatedAt.Before(oldest.CreatedAt) {
			oldest = account
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *pipeline.Account) error {
	if account.ID == "" {
		return fmt.Errorf("CreateAccount: account id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("CreateAccount: account %s already exists", account.ID)
	}
	copied := *account
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.accounts[account.ID] = &copied
	return nil
}

func (s *Store) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		wanted[h] = struct{}{}
	}

	existing := make(map[string]struct{})
	for _, tx := range s.transactions[accountID] {
		if _, ok := wanted[tx.Hash]; ok {
			existing[tx.Hash] = struct{}{}
		}
	}
	return existing, nil
}

func (s *Store) InsertTransactions(ctx context.Context, txs []*pipeline.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		copied := *tx
		s.transactions[tx.AccountID] = append(s.transactions[tx.AccountID], &copied)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*pipeline.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.transactions[accountID]
	out := make([]*pipeline.Transaction, 0, len(stored))
	for _, tx := range stored {
		copied := *tx
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, accountID string, balance, available decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("UpdateAccountBalance: account not found: %s", accountID)
	}
	account.Balance = balance
	account.AvailableBalance = available
	return nil
}
