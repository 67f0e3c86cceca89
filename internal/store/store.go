// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// Store errors.
var (
	ErrNotFound         = errors.New("item not found")
	ErrInvalidID        = errors.New("invalid item ID")
	ErrIDSpaceExhausted = errors.New("could not generate a unique item ID")
)

// Store defines the interface for item repository operations.
// Every read returns a snapshot: later mutations are never visible
// through a previously returned value.
type Store interface {
	// List returns all items in the repository's iteration order.
	List(ctx context.Context) ([]model.Item, error)

	// All returns the full collection keyed by item ID.
	All(ctx context.Context) (model.Catalog, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.Item, error)

	// Create stores a new item under a freshly generated ID and returns the ID.
	Create(ctx context.Context, fields model.ItemFields) (string, error)

	// Update replaces every field of an existing item. The ID is preserved.
	Update(ctx context.Context, id string, fields model.ItemFields) error

	// Delete removes an item. Deleting an unknown ID is a no-op; the
	// returned flag reports whether an item was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Replace swaps the whole collection for the given catalog.
	Replace(ctx context.Context, catalog model.Catalog) error

	// Len returns the number of stored items.
	Len() int

	// Revision increases with every successful mutation.
	Revision() uint64
}
