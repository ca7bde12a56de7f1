package savingscache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]UserRecord
	goals map[string]GoalRecord
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]UserRecord),
		goals: make(map[string]GoalRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) UpsertUser(_ context.Context, rec UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = m.now()
	m.users[rec.WalletAddress] = rec
	return nil
}

func (m *MemoryStore) UpsertGoal(_ context.Context, rec GoalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.goals[rec.GoalAddress]; ok {
		rec.WalletAddress = existing.WalletAddress
		rec.GoalIndex = existing.GoalIndex
		rec.CurrencyID = existing.CurrencyID
		rec.Mode = existing.Mode
		rec.RiskTier = existing.RiskTier
		rec.ChainCreatedAt = existing.ChainCreatedAt
	}
	rec.UpdatedAt = m.now()
	m.goals[rec.GoalAddress] = rec
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, wallet string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.users[wallet]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) ListGoals(_ context.Context, wallet string) ([]GoalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []GoalRecord{}
	for _, g := range m.goals {
		if g.WalletAddress == wallet {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoalIndex < out[j].GoalIndex })
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
