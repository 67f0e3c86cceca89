// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"math"
	"slices"
)

// Validation errors for Item.
var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNegativePrice  = errors.New("price cannot be negative")
	ErrNonFinitePrice = errors.New("price must be a finite number")
	ErrMissingImage   = errors.New("image is required")
)

// ItemFields is the id-less payload of a catalog item. Create and update
// operations accept it; updates replace every field wholesale.
type ItemFields struct {
	Name   string   `json:"name" validate:"required"`
	Price  float64  `json:"price" validate:"gt=0"`
	Image  string   `json:"image"`
	Colors []string `json:"colors" validate:"min=1,dive,required"`
	Sizes  []string `json:"sizes" validate:"dive,required"`
	Tags   []string `json:"tags" validate:"min=1,dive,required"`
}

// Item represents a catalog entry as stored in the repository.
type Item struct {
	ID string `json:"id"`
	ItemFields
}

// Validate checks the invariants every stored item must satisfy.
// Loaded records may carry empty color or tag sets.
func (i *Item) Validate() error {
	if i.Name == "" {
		return ErrEmptyName
	}

	if math.IsNaN(i.Price) || math.IsInf(i.Price, 0) {
		return ErrNonFinitePrice
	}

	if i.Price < 0 {
		return ErrNegativePrice
	}

	return nil
}

// Clone returns a deep copy of the fields. Nil slices become empty slices
// so that encoded output never contains null sets.
func (f ItemFields) Clone() ItemFields {
	return ItemFields{
		Name:   f.Name,
		Price:  f.Price,
		Image:  f.Image,
		Colors: cloneSet(f.Colors),
		Sizes:  cloneSet(f.Sizes),
		Tags:   cloneSet(f.Tags),
	}
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	return Item{
		ID:         i.ID,
		ItemFields: i.ItemFields.Clone(),
	}
}

// HasTag reports whether tag is a member of the item's tag set.
func (i Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

func cloneSet(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}
