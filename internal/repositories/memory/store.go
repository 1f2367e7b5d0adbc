// Package memory implements the repository ports with in-process maps.
// It backs STORAGE_DRIVER=memory and the service tests. Nothing is persisted.
package memory

import (
	"strings"
	"sync"

	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
)

// Store holds every entity behind one RWMutex for map access, plus a mutex
// per account that serializes compound balance and position updates.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	trades       map[domain.PositionKey][]domain.Trade
	positions    map[domain.PositionKey]domain.Position
	categories   map[string]domain.Category // keyed by owner + name

	locksMu      sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		trades:       make(map[domain.PositionKey][]domain.Trade),
		positions:    make(map[domain.PositionKey]domain.Position),
		categories:   make(map[string]domain.Category),
		accountLocks: make(map[string]*sync.Mutex),
	}
}

// NewRepositoryProvider exposes one store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     store,
		TransactionRepo: store,
		PositionRepo:    store,
		CategoryRepo:    store,
	}
}

var (
	_ portsrepo.AccountRepositoryFacade     = (*Store)(nil)
	_ portsrepo.TransactionRepositoryFacade = (*Store)(nil)
	_ portsrepo.PositionRepositoryFacade    = (*Store)(nil)
	_ portsrepo.CategoryRepository          = (*Store)(nil)
)

// lockAccount acquires the write lock of one account and returns its release.
func (s *Store) lockAccount(accountID string) func() {
	s.locksMu.Lock()
	l, ok := s.accountLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.accountLocks[accountID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func categoryKey(ownerID, name string) string {
	return ownerID + "\x00" + strings.TrimSpace(name)
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
