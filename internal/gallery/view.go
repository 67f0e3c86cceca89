// Package gallery implements the catalog gallery view: it owns the
// display state, renders filtered cards and routes item mutations into
// the repository.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/catalog"
	"github.com/vyrodovalexey/catalog-gallery/internal/imaging"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

// ErrMissingFields is returned when a save lacks a required field.
var ErrMissingFields = errors.New("please fill in all required fields")

// Notifier receives catalog change events.
type Notifier interface {
	Notify(event model.CatalogEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(model.CatalogEvent) {}

// Options configures a View.
type Options struct {
	DefaultMaxPrice float64
	PriceRangeMax   float64
	FilterTags      []string
	Colors          []string
	Sizes           []string
	CacheSize       int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		DefaultMaxPrice: catalog.DefaultMaxPrice,
		PriceRangeMax:   catalog.DefaultMaxPrice,
		FilterTags:      []string{"top", "bottom", "outerwear", "accessories"},
		Colors:          []string{"Red", "Blue", "Green", "Black", "White"},
		Sizes:           []string{"XS", "S", "M", "L", "XL"},
		CacheSize:       128,
	}
}

// State is the view's filter state: the active tag and the price ceiling.
type State struct {
	ActiveTag string
	MaxPrice  float64
}

// SetTag selects a tag; a blank tag selects every tag.
func (s *State) SetTag(tag string) {
	s.ActiveTag = catalog.Filter{Tag: tag}.Normalize().Tag
}

// SetMaxPrice moves the price ceiling.
func (s *State) SetMaxPrice(price float64) {
	s.MaxPrice = price
}

// Filter converts the state into a query filter.
func (s State) Filter() catalog.Filter {
	return catalog.Filter{MaxPrice: s.MaxPrice, Tag: s.ActiveTag}.Normalize()
}

type pageKey struct {
	revision uint64
	tag      string
	maxPrice float64
}

// View is the gallery. It is safe for concurrent use.
type View struct {
	store    store.Store
	encoder  *imaging.Encoder
	validate *model.Validator
	notifier Notifier
	logger   *zap.Logger
	opts     Options
	pages    *lru.Cache[pageKey, []byte]
	tmpl     *template.Template
}

// NewView creates a View. A nil notifier discards events; a zero
// CacheSize disables page caching.
func NewView(
	s store.Store,
	encoder *imaging.Encoder,
	notifier Notifier,
	logger *zap.Logger,
	opts Options,
) (*View, error) {
	if s == nil {
		return nil, errors.New("gallery: store cannot be nil")
	}
	if encoder == nil {
		encoder = imaging.NewEncoder(0)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PriceRangeMax <= 0 {
		opts.PriceRangeMax = catalog.DefaultMaxPrice
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("gallery: parsing templates: %w", err)
	}

	v := &View{
		store:    s,
		encoder:  encoder,
		validate: model.NewValidator(),
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		tmpl:     tmpl,
	}

	if opts.CacheSize > 0 {
		pages, err := lru.New[pageKey, []byte](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("gallery: creating page cache: %w", err)
		}
		v.pages = pages
	}

	return v, nil
}

// DefaultState returns the state a fresh gallery starts with.
func (v *View) DefaultState() State {
	return State{ActiveTag: catalog.TagAll, MaxPrice: v.opts.DefaultMaxPrice}
}

// Options returns the view configuration.
func (v *View) Options() Options {
	return v.opts
}

// Query returns the items the given state displays.
func (v *View) Query(ctx context.Context, state State) (catalog.Result, error) {
	items, err := v.store.List(ctx)
	if err != nil {
		return catalog.Result{}, fmt.Errorf("query gallery: %w", err)
	}
	return catalog.Query(items, state.Filter()), nil
}

// Create validates a complete payload, image included, and stores it.
func (v *View) Create(ctx context.Context, fields model.ItemFields) (string, error) {
	if err := v.checkFields(&fields); err != nil {
		return "", err
	}
	if fields.Image == "" {
		return "", model.ErrMissingImage
	}
	return v.create(ctx, fields)
}

// Update validates a complete payload and replaces the item at id.
func (v *View) Update(ctx context.Context, id string, fields model.ItemFields) error {
	if err := v.checkFields(&fields); err != nil {
		return err
	}
	if fields.Image == "" {
		return model.ErrMissingImage
	}
	return v.update(ctx, id, fields)
}

// Delete removes the item at id. Unknown IDs are ignored.
func (v *View) Delete(ctx context.Context, id string) error {
	removed, err := v.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !removed {
		v.logger.Debug("delete of unknown item ignored", zap.String("item_id", id))
		return nil
	}

	v.changed(model.EventItemDeleted, id)
	return nil
}

// Replace swaps the whole catalog, as done by the startup load.
func (v *View) Replace(ctx context.Context, c model.Catalog) error {
	if err := v.store.Replace(ctx, c); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	v.changed(model.EventCatalogReplaced, "")
	return nil
}

func (v *View) checkFields(fields *model.ItemFields) error {
	if err := v.validate.ValidateFields(fields); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingFields, err)
	}
	return nil
}

func (v *View) create(ctx context.Context, fields model.ItemFields) (string, error) {
	id, err := v.store.Create(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}

	v.changed(model.EventItemCreated, id)
	return id, nil
}

func (v *View) update(ctx context.Context, id string, fields model.ItemFields) error {
	if err := v.store.Update(ctx, id, fields); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	v.changed(model.EventItemUpdated, id)
	return nil
}

// changed records a mutation and tells subscribers to re-render.
func (v *View) changed(eventType, id string) {
	catalogMutations.WithLabelValues(eventType).Inc()
	catalogItems.Set(float64(v.store.Len()))

	v.logger.Info("catalog changed",
		zap.String("event", eventType),
		zap.String("item_id", id),
		zap.Uint64("revision", v.store.Revision()),
	)

	v.notifier.Notify(model.NewCatalogEvent(eventType, id))
}
