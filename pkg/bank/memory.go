package bank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/models"
)

// MemoryCore keeps accounts in a map. It backs the bot while MongoDB is not
// configured and is used by tests.
type MemoryCore struct {
	mu         sync.Mutex
	accounts   map[string]*models.Account
	maxBalance int64
	now        func() time.Time
}

var _ Core = (*MemoryCore)(nil)

// NewMemoryCore creates an empty MemoryCore. A maxBalance <= 0 uses
// DefaultMaxBalance.
func NewMemoryCore(maxBalance int64) *MemoryCore {
	if maxBalance <= 0 {
		maxBalance = DefaultMaxBalance
	}
	return &MemoryCore{
		accounts:   make(map[string]*models.Account),
		maxBalance: maxBalance,
		now:        time.Now,
	}
}

func (m *MemoryCore) GetUser(_ context.Context, userID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		acc = &models.Account{UserID: userID, CreatedAt: m.now()}
		m.accounts[userID] = acc
	}
	cp := *acc
	return &cp, nil
}

func (m *MemoryCore) FindUser(_ context.Context, userID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	cp := *acc
	return &cp, nil
}

func (m *MemoryCore) Deposit(_ context.Context, userID string, value int64) (*models.Account, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	return m.apply(userID, value)
}

func (m *MemoryCore) Withdraw(_ context.Context, userID string, value int64) (*models.Account, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	return m.apply(userID, -value)
}

func (m *MemoryCore) apply(userID string, delta int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	if delta > 0 && acc.Balance > m.maxBalance-delta {
		return nil, ErrBalanceOverLimit
	}
	if err := checkBalance(acc.Balance+delta, m.maxBalance); err != nil {
		return nil, err
	}

	acc.Balance += delta
	cp := *acc
	return &cp, nil
}

func (m *MemoryCore) Move(ctx context.Context, from, to string, value int64) error {
	return transfer(ctx, func(_ context.Context, userID string, delta int64) error {
		_, err := m.apply(userID, delta)
		return err
	}, from, to, value)
}

func (m *MemoryCore) LastFreeCredits(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	return acc.LastFreeCredits, nil
}

func (m *MemoryCore) UpdateLastFreeCredits(_ context.Context, userID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	acc.LastFreeCredits = t.Unix()
	return nil
}

func (m *MemoryCore) Users(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryCore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, userID)
	return nil
}

func (m *MemoryCore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*models.Account)
	return nil
}
