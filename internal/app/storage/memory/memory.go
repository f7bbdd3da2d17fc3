package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development; durability across restarts comes from the redis and postgres
// implementations.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	domains   map[string]map[string]cache.Entry
	mutations map[string]mutation.Pending
	order     map[string]int64
}

var _ storage.CacheStore = (*Store)(nil)
var _ storage.MutationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:    1,
		domains:   make(map[string]map[string]cache.Entry),
		mutations: make(map[string]mutation.Pending),
		order:     make(map[string]int64),
	}
}

func (s *Store) OpenDomain(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[name]; !ok {
		s.domains[name] = make(map[string]cache.Entry)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, domain, key string) (cache.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.domains[domain]
	if !ok {
		return cache.Entry{}, false, nil
	}
	entry, ok := entries[key]
	return entry, ok, nil
}

func (s *Store) PutEntry(ctx context.Context, domain, key string, entry cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.domains[domain]
	if !ok {
		entries = make(map[string]cache.Entry)
		s.domains[domain] = entries
	}
	entry.Key = key
	entries[key] = entry
	return nil
}

func (s *Store) ListDomains(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.domains))
	for name := range s.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) DeleteDomainsExcept(ctx context.Context, active []string) ([]string, error) {
	keep := make(map[string]bool, len(active))
	for _, name := range active {
		keep[name] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []string
	for name := range s.domains {
		if !keep[name] {
			delete(s.domains, name)
			purged = append(purged, name)
		}
	}
	sort.Strings(purged)
	return purged, nil
}

func (s *Store) EnqueueMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = fmt.Sprintf("mut-%d", s.nextID)
	}
	if _, exists := s.mutations[m.ID]; exists {
		return mutation.Pending{}, fmt.Errorf("mutation %s already enqueued", m.ID)
	}
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}
	if m.State == "" {
		m.State = mutation.StatePending
	}
	s.order[m.ID] = s.nextID
	s.nextID++
	s.mutations[m.ID] = m
	return m, nil
}

func (s *Store) ListPendingMutations(ctx context.Context) ([]mutation.Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mutation.Pending, 0, len(s.mutations))
	for _, m := range s.mutations {
		if m.State == mutation.StatePending {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *Store) UpdateMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mutations[m.ID]; !ok {
		return mutation.Pending{}, fmt.Errorf("mutation %s not found", m.ID)
	}
	s.mutations[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMutation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mutations[id]; !ok {
		return fmt.Errorf("mutation %s not found", id)
	}
	delete(s.mutations, id)
	delete(s.order, id)
	return nil
}

func (s *Store) FindMutationByOpKey(ctx context.Context, opKey string) (mutation.Pending, bool, error) {
	if opKey == "" {
		return mutation.Pending{}, false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  mutation.Pending
		found bool
	)
	for _, m := range s.mutations {
		if m.OpKey != opKey || m.State != mutation.StatePending {
			continue
		}
		if !found || s.order[m.ID] < s.order[best.ID] {
			best = m
			found = true
		}
	}
	return best, found, nil
}
