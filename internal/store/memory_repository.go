package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/google/uuid"
)

// MemoryAccountRepository keeps accounts in process memory. It backs local runs
// (STORE_DRIVER=memory) and the service tests.
type MemoryAccountRepository struct {
	mu            sync.RWMutex
	accounts      map[string]*domain.Account
	customerIndex map[string][]string
	now           func() time.Time
}

// NewMemoryAccountRepository creates an empty in-memory repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts:      make(map[string]*domain.Account),
		customerIndex: make(map[string][]string),
		now:           time.Now,
	}
}

func (r *MemoryAccountRepository) FindAll(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		result = append(result, *account)
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (r *MemoryAccountRepository) FindByCustomerID(ctx context.Context, customerID string) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Account{}
	for _, id := range r.customerIndex[customerID] {
		if account, exists := r.accounts[id]; exists {
			result = append(result, *account)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryAccountRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := account.Clone()
	now := r.now()

	if stored.ID == "" {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	} else {
		existing, exists := r.accounts[stored.ID]
		if !exists {
			return nil, domain.ErrAccountNotFound
		}
		stored.CreatedAt = existing.CreatedAt
		if existing.CustomerID != stored.CustomerID {
			r.unindex(existing.CustomerID, existing.ID)
		}
	}
	stored.UpdatedAt = now

	if !r.indexed(stored.CustomerID, stored.ID) {
		r.customerIndex[stored.CustomerID] = append(r.customerIndex[stored.CustomerID], stored.ID)
	}
	r.accounts[stored.ID] = stored

	return stored.Clone(), nil
}

func (r *MemoryAccountRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil
	}
	r.unindex(account.CustomerID, id)
	delete(r.accounts, id)
	return nil
}

func (r *MemoryAccountRepository) indexed(customerID, id string) bool {
	for _, existing := range r.customerIndex[customerID] {
		if existing == id {
			return true
		}
	}
	return false
}

func (r *MemoryAccountRepository) unindex(customerID, id string) {
	ids := r.customerIndex[customerID]
	for i, existing := range ids {
		if existing == id {
			r.customerIndex[customerID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.customerIndex[customerID]) == 0 {
		delete(r.customerIndex, customerID)
	}
}

func sortByCreation(accounts []domain.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}
