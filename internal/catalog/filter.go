// Package catalog selects the items a gallery displays.
//
// Filters compose conjunctively: an item is shown only when it is within
// the price ceiling and carries the active tag (or the tag is TagAll).
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// TagAll disables tag filtering.
const TagAll = "all"

// DefaultMaxPrice is the top of the price slider's range.
const DefaultMaxPrice = 2000.0

// EmptyMessage is shown in place of cards when nothing matches.
const EmptyMessage = "No items found for this filter. Try adjusting your filters!"

// ErrInvalidMaxPrice is returned for unparsable, negative or non-finite ceilings.
var ErrInvalidMaxPrice = errors.New("max price must be a non-negative number")

// Filter holds the two independent display predicates.
type Filter struct {
	MaxPrice float64
	Tag      string
}

// DefaultFilter shows every item up to DefaultMaxPrice.
func DefaultFilter() Filter {
	return Filter{MaxPrice: DefaultMaxPrice, Tag: TagAll}
}

// Normalize maps a blank tag to TagAll.
func (f Filter) Normalize() Filter {
	f.Tag = strings.TrimSpace(f.Tag)
	if f.Tag == "" {
		f.Tag = TagAll
	}
	return f
}

// AllTags reports whether tag filtering is disabled.
func (f Filter) AllTags() bool {
	return f.Tag == TagAll || f.Tag == ""
}

// Matches reports whether item satisfies both the price and tag predicates.
func (f Filter) Matches(item model.Item) bool {
	if item.Price > f.MaxPrice {
		return false
	}
	return f.AllTags() || item.HasTag(f.Tag)
}

// Apply returns the matching items in input order. The input is not modified.
func Apply(items []model.Item, f Filter) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// Result is the outcome of a gallery query.
type Result struct {
	Filter Filter
	Items  []model.Item
	Total  int
}

// Empty reports whether no item matched.
func (r Result) Empty() bool {
	return len(r.Items) == 0
}

// Query filters items and records how many were considered.
func Query(items []model.Item, f Filter) Result {
	f = f.Normalize()
	return Result{
		Filter: f,
		Items:  Apply(items, f),
		Total:  len(items),
	}
}

// ParseFilter builds a filter from raw query values. Blank values fall
// back to def.
func ParseFilter(tag, maxPrice string, def Filter) (Filter, error) {
	f := def
	if t := strings.TrimSpace(tag); t != "" {
		f.Tag = t
	}

	if raw := strings.TrimSpace(maxPrice); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return def, fmt.Errorf("%w: %q", ErrInvalidMaxPrice, raw)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			return def, fmt.Errorf("%w: %q", ErrInvalidMaxPrice, raw)
		}
		f.MaxPrice = price
	}

	return f.Normalize(), nil
}

// Tags returns the sorted set of distinct tags carried by items.
func Tags(items []model.Item) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, tag := range item.Tags {
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}
