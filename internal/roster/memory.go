package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory implements Store with in-process concurrency safety. Useful for
// tests and single-node deployments without a configured database.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	societies map[string]*Society
	changes   map[string]*SocietyChangeRequest
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]*Account),
		societies: make(map[string]*Society),
		changes:   make(map[string]*SocietyChangeRequest),
	}
}

func (m *Memory) Accounts(ctx context.Context) AccountStore             { return (*memAccounts)(m) }
func (m *Memory) Societies(ctx context.Context) SocietyStore            { return (*memSocieties)(m) }
func (m *Memory) SocietyChanges(ctx context.Context) SocietyChangeStore { return (*memChanges)(m) }

// ApplySocietyChange flips the request to approved and replaces the
// athlete's memberships under a single lock.
func (m *Memory) ApplySocietyChange(ctx context.Context, requestID string) (*SocietyChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.changes[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: request already %s", ErrConflict, req.Status)
	}
	account, ok := m.accounts[req.AthleteID]
	if !ok {
		return nil, ErrNotFound
	}
	req.Status = StatusApproved
	account.SocietyIDs = []string{req.NewSocietyID}
	return cloneChange(req), nil
}

// Account store -------------------------------------------------------------

type memAccounts Memory

func (m *memAccounts) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return fmt.Errorf("%w: account id in use", ErrConflict)
	}
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	m.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (m *memAccounts) Find(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *memAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAccounts) List(ctx context.Context, filter AccountFilter) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Account
	for _, a := range m.accounts {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if len(filter.SocietyIDs) > 0 && !Intersects(filter.SocietyIDs, a.SocietyIDs) {
			continue
		}
		if filter.DesignatedCoachID != "" && a.DesignatedCoachID != filter.DesignatedCoachID {
			continue
		}
		result = append(result, cloneAccount(a))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memAccounts) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}

func (m *memAccounts) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != from {
		return fmt.Errorf("%w: account already %s", ErrConflict, a.Status)
	}
	a.Status = to
	return nil
}

func (m *memAccounts) ReplaceSocieties(ctx context.Context, id string, societyIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.SocietyIDs = append([]string(nil), societyIDs...)
	return nil
}

func (m *memAccounts) SetDesignatedCoach(ctx context.Context, id, coachID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.DesignatedCoachID = coachID
	return nil
}

func (m *memAccounts) UpdateCategory(ctx context.Context, id, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Category = category
	return nil
}

func (m *memAccounts) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

// Society store --------------------------------------------------------------

type memSocieties Memory

func (m *memSocieties) Create(ctx context.Context, s *Society) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.societies[s.ID]; ok {
		return fmt.Errorf("%w: society id in use", ErrConflict)
	}
	clone := *s
	m.societies[s.ID] = &clone
	return nil
}

func (m *memSocieties) Find(ctx context.Context, id string) (*Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.societies[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memSocieties) List(ctx context.Context) ([]*Society, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Society
	for _, s := range m.societies {
		clone := *s
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Society change store -------------------------------------------------------

type memChanges Memory

func (m *memChanges) Create(ctx context.Context, req *SocietyChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.changes[req.ID]; ok {
		return fmt.Errorf("%w: request id in use", ErrConflict)
	}
	m.changes[req.ID] = cloneChange(req)
	return nil
}

func (m *memChanges) Find(ctx context.Context, id string) (*SocietyChangeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.changes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneChange(req), nil
}

func (m *memChanges) List(ctx context.Context, filter SocietyChangeFilter) ([]*SocietyChangeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*SocietyChangeRequest
	for _, req := range m.changes {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.AthleteID != "" && req.AthleteID != filter.AthleteID {
			continue
		}
		if len(filter.NewSocietyIDs) > 0 && !Intersects(filter.NewSocietyIDs, []string{req.NewSocietyID}) {
			continue
		}
		result = append(result, cloneChange(req))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memChanges) HasPending(ctx context.Context, athleteID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, req := range m.changes {
		if req.AthleteID == athleteID && req.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

// --- helpers ---

func cloneAccount(a *Account) *Account {
	clone := *a
	clone.SocietyIDs = append([]string(nil), a.SocietyIDs...)
	if a.BirthYear != nil {
		v := *a.BirthYear
		clone.BirthYear = &v
	}
	if a.Weight != nil {
		v := *a.Weight
		clone.Weight = &v
	}
	if a.Height != nil {
		v := *a.Height
		clone.Height = &v
	}
	return &clone
}

func cloneChange(req *SocietyChangeRequest) *SocietyChangeRequest {
	clone := *req
	return &clone
}
