package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errTokenNotFound = errors.New("auth: reset token not found")

// MemoryResetTokens implements ResetTokenStore in process memory.
type MemoryResetTokens struct {
	mu     sync.Mutex
	tokens map[string]*ResetToken
}

var _ ResetTokenStore = (*MemoryResetTokens)(nil)

// NewMemoryResetTokens creates an empty store.
func NewMemoryResetTokens() *MemoryResetTokens {
	return &MemoryResetTokens{tokens: make(map[string]*ResetToken)}
}

func (m *MemoryResetTokens) Create(ctx context.Context, t *ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tokens[t.ID] = &clone
	return nil
}

func (m *MemoryResetTokens) Find(ctx context.Context, id string) (*ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, errTokenNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MemoryResetTokens) MarkConsumed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return errTokenNotFound
	}
	t.Consumed = true
	return nil
}

func (m *MemoryResetTokens) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tokens {
		if now.After(t.ExpiresAt) || t.Consumed {
			delete(m.tokens, id)
			removed++
		}
	}
	return removed, nil
}
