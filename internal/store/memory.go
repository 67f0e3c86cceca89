package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
// Items are kept in insertion order so that listings are stable.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]model.Item
	order    []string
	newID    IDGenerator
	revision uint64
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithIDGenerator overrides the default random token generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *MemoryStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]model.Item),
		newID: RandomToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id].Clone())
	}

	return items, nil
}

// All returns the full collection keyed by item ID.
func (s *MemoryStore) All(ctx context.Context) (model.Catalog, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("all items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := make(model.Catalog, len(s.items))
	for id, item := range s.items {
		catalog[id] = item.Clone()
	}

	return catalog, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	clone := item.Clone()
	return &clone, nil
}

// Create stores a new item under a freshly generated ID.
func (s *MemoryStore) Create(ctx context.Context, fields model.ItemFields) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.uniqueID()
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}

	s.items[id] = model.Item{ID: id, ItemFields: fields.Clone()}
	s.order = append(s.order, id)
	s.revision++

	return id, nil
}

// uniqueID draws candidates until one is unused. Callers hold the write lock.
func (s *MemoryStore) uniqueID() (string, error) {
	for range MaxIDAttempts {
		candidate := s.newID()
		if candidate == "" {
			continue
		}
		if _, taken := s.items[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// Update replaces every field of an existing item.
func (s *MemoryStore) Update(ctx context.Context, id string, fields model.ItemFields) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	s.items[id] = model.Item{ID: id, ItemFields: fields.Clone()}
	s.revision++

	return nil
}

// Delete removes an item by its ID. Unknown IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return false, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return false, nil
	}

	delete(s.items, id)
	if idx := slices.Index(s.order, id); idx >= 0 {
		s.order = slices.Delete(s.order, idx, idx+1)
	}
	s.revision++

	return true, nil
}

// Replace swaps the whole collection. Map keys win over any ID carried
// inside the records. Iteration order of the new collection follows the
// sorted IDs.
func (s *MemoryStore) Replace(ctx context.Context, catalog model.Catalog) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("replace catalog: %w", ctx.Err())
	default:
	}

	items := make(map[string]model.Item, len(catalog))
	order := make([]string, 0, len(catalog))
	for id, item := range catalog {
		if id == "" {
			return fmt.Errorf("replace catalog: %w", ErrInvalidID)
		}
		items[id] = model.Item{ID: id, ItemFields: item.ItemFields.Clone()}
		order = append(order, id)
	}
	sort.Strings(order)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	s.order = order
	s.revision++

	return nil
}

// Revision returns the current mutation counter.
func (s *MemoryStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
