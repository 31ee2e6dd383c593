package catalog

import (
	"context"
	"slices"
	"sync"
)

// MemStore keeps products in insertion order. Every mutation holds the write
// lock, so ids handed out by the counter never collide.
type MemStore struct {
	mu     sync.RWMutex
	items  []Product
	nextID int64
}

func NewMemStore(seed []Product) *MemStore {
	s := &MemStore{
		items:  slices.Clone(seed),
		nextID: 1,
	}
	for _, p := range seed {
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s
}

func NewStore() *MemStore {
	return NewMemStore(Fixtures())
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) List(context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemStore) Get(_ context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true, nil
	}
	return Product{}, false, nil
}

func (s *MemStore) Create(_ context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Product{ID: s.nextID, Description: in.Description, Price: *in.Price}
	s.nextID++
	s.items = append(s.items, p)
	return p, nil
}

func (s *MemStore) Update(_ context.Context, id int64, in ProductInput) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, false, nil
	}
	if err := in.Validate(); err != nil {
		return Product{}, true, err
	}

	s.items[i] = Product{ID: id, Description: in.Description, Price: *in.Price}
	return s.items[i], true, nil
}

func (s *MemStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Product, 0, len(s.items))
	for _, p := range s.items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.items) {
		return false, nil
	}
	s.items = kept
	return true, nil
}

func (s *MemStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemStore) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(p Product) bool { return p.ID == id })
}
