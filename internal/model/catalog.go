package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrArrayCatalog is returned when a catalog document uses the legacy
// array-of-items shape instead of the id-keyed object.
var ErrArrayCatalog = errors.New("catalog must be an object keyed by item ID, not an array")

// Catalog maps item IDs to items. On the wire it is an object keyed by ID
// whose records do not repeat the ID.
type Catalog map[string]Item

// MarshalJSON encodes the catalog in its canonical id-keyed shape.
func (c Catalog) MarshalJSON() ([]byte, error) {
	records := make(map[string]ItemFields, len(c))
	for id, item := range c {
		records[id] = item.ItemFields.Clone()
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes an id-keyed catalog and fills each item's ID from
// its key.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return ErrArrayCatalog
	}

	var records map[string]ItemFields
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return err
	}

	out := make(Catalog, len(records))
	for id, fields := range records {
		out[id] = Item{ID: id, ItemFields: fields.Clone()}
	}
	*c = out

	return nil
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for id, item := range c {
		out[id] = item.Clone()
	}
	return out
}
