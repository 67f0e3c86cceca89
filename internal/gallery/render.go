package gallery

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/catalog-gallery/internal/catalog"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// NoSizes is displayed for items without sizes.
const NoSizes = "Not specified"

func parseTemplates() (*template.Template, error) {
	return template.New("gallery.html").
		Funcs(template.FuncMap{"imageURL": imageURL}).
		ParseFS(templateFS, "templates/*.html")
}

// imageURL admits base64 image data URIs and plain http(s) or relative
// locations as image sources.
func imageURL(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"),
		strings.HasPrefix(src, "/"):
		return template.URL(src) //nolint:gosec // sources are restricted above
	default:
		return "#"
	}
}

// Card is the presentation model of one item.
type Card struct {
	ID     string
	Name   string
	Image  string
	Price  string
	Colors string
	Sizes  string
	Tags   []string
}

// NewCard formats an item for display.
func NewCard(item model.Item) Card {
	sizes := NoSizes
	if len(item.Sizes) > 0 {
		sizes = strings.Join(item.Sizes, ", ")
	}

	return Card{
		ID:     item.ID,
		Name:   item.Name,
		Image:  item.Image,
		Price:  decimal.NewFromFloat(item.Price).StringFixed(2),
		Colors: strings.Join(item.Colors, ", "),
		Sizes:  sizes,
		Tags:   slices.Clone(item.Tags),
	}
}

// Cards formats every item in order.
func Cards(items []model.Item) []Card {
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		cards = append(cards, NewCard(item))
	}
	return cards
}

// ConfirmDelete returns the card shown in the delete confirmation.
func (v *View) ConfirmDelete(ctx context.Context, id string) (*Card, error) {
	item, err := v.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("confirm delete: %w", err)
	}
	card := NewCard(*item)
	return &card, nil
}

// Page describes what to render besides the cards.
type Page struct {
	State   State
	Form    *EditForm
	Confirm *Card
	Notice  string
}

func (p Page) plain() bool {
	return p.Form == nil && p.Confirm == nil && p.Notice == ""
}

// FilterLink is one entry of the tag filter bar.
type FilterLink struct {
	Label  string
	URL    string
	Active bool
}

type pageData struct {
	Cards         []Card
	Empty         bool
	EmptyMessage  string
	Filters       []FilterLink
	ActiveTag     string
	MaxPrice      string
	PriceRangeMax string
	Form          *EditForm
	Confirm       *Card
	Notice        string
	ExportURL     string
	ReturnQuery   template.URL
}

// Render writes the gallery page for the given state. Plain listings are
// served from the page cache while the repository revision is unchanged.
func (v *View) Render(ctx context.Context, w io.Writer, page Page) error {
	filter := page.State.Filter()
	key := pageKey{revision: v.store.Revision(), tag: filter.Tag, maxPrice: filter.MaxPrice}
	cacheable := page.plain() && v.pages != nil

	if cacheable {
		if html, ok := v.pages.Get(key); ok {
			pageCacheLookups.WithLabelValues("hit").Inc()
			_, err := w.Write(html)
			return err
		}
		pageCacheLookups.WithLabelValues("miss").Inc()
	}

	items, err := v.store.List(ctx)
	if err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}
	result := catalog.Query(items, filter)

	data := pageData{
		Cards:         Cards(result.Items),
		Empty:         result.Empty(),
		EmptyMessage:  catalog.EmptyMessage,
		Filters:       v.filterLinks(items, filter),
		ActiveTag:     filter.Tag,
		MaxPrice:      formatAmount(filter.MaxPrice),
		PriceRangeMax: formatAmount(v.opts.PriceRangeMax),
		Form:          page.Form,
		Confirm:       page.Confirm,
		Notice:        page.Notice,
		ExportURL:     "/api/v1/items/export",
		ReturnQuery:   template.URL(StateQuery(page.State)), //nolint:gosec // built by url.Values
	}

	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, "gallery.html", data); err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}

	if cacheable {
		v.pages.Add(key, bytes.Clone(buf.Bytes()))
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// filterLinks lists "all", the configured tags and any other tag present
// in the catalog.
func (v *View) filterLinks(items []model.Item, filter catalog.Filter) []FilterLink {
	tags := slices.Clone(v.opts.FilterTags)
	for _, tag := range catalog.Tags(items) {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}

	links := make([]FilterLink, 0, len(tags)+1)
	links = append(links, FilterLink{
		Label:  "All Items",
		URL:    "/?" + StateQuery(State{ActiveTag: catalog.TagAll, MaxPrice: filter.MaxPrice}),
		Active: filter.AllTags(),
	})
	for _, tag := range tags {
		links = append(links, FilterLink{
			Label:  tag,
			URL:    "/?" + StateQuery(State{ActiveTag: tag, MaxPrice: filter.MaxPrice}),
			Active: filter.Tag == tag,
		})
	}
	return links
}

// StateQuery encodes a state as URL query parameters.
func StateQuery(s State) string {
	f := s.Filter()
	q := url.Values{}
	q.Set("tag", f.Tag)
	q.Set("max_price", formatAmount(f.MaxPrice))
	return q.Encode()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
