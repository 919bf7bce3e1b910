package perf

import (
	"context"
	"sort"
	"sync"
)

// Filter narrows test listings. A nil SubjectIDs leaves the listing
// unrestricted; SubjectID additionally narrows to one subject. Both apply.
type Filter struct {
	SubjectIDs []string
	SubjectID  string
}

// Store describes persistence operations for performance tests. Listings
// are ordered by date descending.
type Store interface {
	Create(ctx context.Context, t *Test) error
	List(ctx context.Context, filter Filter) ([]*Test, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*Test, error)
}

// Memory implements Store with in-process concurrency safety.
type Memory struct {
	mu    sync.RWMutex
	tests []*Test
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Create(ctx context.Context, t *Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tests = append(m.tests, &clone)
	return nil
}

func (m *Memory) List(ctx context.Context, filter Filter) ([]*Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allowed map[string]struct{}
	if filter.SubjectIDs != nil {
		allowed = make(map[string]struct{}, len(filter.SubjectIDs))
		for _, id := range filter.SubjectIDs {
			allowed[id] = struct{}{}
		}
	}

	var result []*Test
	for _, t := range m.tests {
		if allowed != nil {
			if _, ok := allowed[t.SubjectID]; !ok {
				continue
			}
		}
		if filter.SubjectID != "" && t.SubjectID != filter.SubjectID {
			continue
		}
		clone := *t
		result = append(result, &clone)
	}
	sortByDateDesc(result)
	return result, nil
}

func (m *Memory) ListBySubject(ctx context.Context, subjectID string) ([]*Test, error) {
	return m.List(ctx, Filter{SubjectID: subjectID})
}

func sortByDateDesc(tests []*Test) {
	sort.SliceStable(tests, func(i, j int) bool {
		if tests[i].Date == tests[j].Date {
			return tests[i].CreatedAt.After(tests[j].CreatedAt)
		}
		return tests[i].Date > tests[j].Date
	})
}
