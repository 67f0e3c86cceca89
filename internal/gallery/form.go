package gallery

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/catalog-gallery/internal/imaging"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// FormReader extracts a submitted item form. The UI layer implements it;
// the view never inspects the underlying document.
type FormReader interface {
	Name() string
	Price() string
	SelectedColors() []string
	SelectedSizes() []string
	SelectedTags() []string
	// Image returns the newly uploaded image, or nil when none was chosen.
	Image(ctx context.Context) (io.ReadCloser, error)
}

// Option is one checkbox of a form option group.
type Option struct {
	Value   string
	Checked bool
}

// EditForm is the data an add or edit modal is prefilled with.
type EditForm struct {
	ID     string
	Title  string
	Name   string
	Price  string
	Image  string
	Colors []Option
	Sizes  []Option
	Tags   []Option
}

// IsEdit reports whether the form targets an existing item.
func (f *EditForm) IsEdit() bool {
	return f.ID != ""
}

// NewForm returns a blank add-item form.
func (v *View) NewForm() *EditForm {
	return &EditForm{
		Title:  "Add New Item",
		Colors: options(v.opts.Colors, nil),
		Sizes:  options(v.opts.Sizes, nil),
		Tags:   options(v.opts.FilterTags, nil),
	}
}

// Edit returns the form prefilled from the item at id.
func (v *View) Edit(ctx context.Context, id string) (*EditForm, error) {
	item, err := v.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("edit item: %w", err)
	}

	return &EditForm{
		ID:     item.ID,
		Title:  "Edit Item",
		Name:   item.Name,
		Price:  decimal.NewFromFloat(item.Price).String(),
		Image:  item.Image,
		Colors: options(v.opts.Colors, item.Colors),
		Sizes:  options(v.opts.Sizes, item.Sizes),
		Tags:   options(v.opts.FilterTags, item.Tags),
	}, nil
}

// Save creates an item when id is empty and otherwise replaces the item
// at id. The edit target is a parameter of the call, never shared state.
// A newly uploaded image is encoded before the repository is touched; an
// edit without a new image keeps the stored one.
func (v *View) Save(ctx context.Context, id string, form FormReader) (string, error) {
	fields := model.ItemFields{
		Name:   strings.TrimSpace(form.Name()),
		Price:  parsePrice(form.Price()),
		Colors: cleanSet(form.SelectedColors()),
		Sizes:  cleanSet(form.SelectedSizes()),
		Tags:   cleanSet(form.SelectedTags()),
	}

	if err := v.checkFields(&fields); err != nil {
		return "", err
	}

	upload, err := form.Image(ctx)
	if err != nil {
		return "", fmt.Errorf("reading image upload: %w", err)
	}

	switch {
	case upload != nil:
		defer func() {
			_ = upload.Close()
		}()
		uri, err := imaging.Await(ctx, v.encoder.EncodeAsync(ctx, upload))
		if err != nil {
			return "", fmt.Errorf("encoding image: %w", err)
		}
		fields.Image = uri
	case id != "":
		existing, err := v.store.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("save item: %w", err)
		}
		fields.Image = existing.Image
	default:
		return "", model.ErrMissingImage
	}

	if id == "" {
		return v.create(ctx, fields)
	}

	if err := v.update(ctx, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// parsePrice returns zero for anything that is not a decimal number,
// which the presence check then rejects.
func parsePrice(raw string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func cleanSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// options lists every configured choice, checking the selected ones.
// Selected values missing from the configuration are appended so that an
// edit never silently drops them.
func options(choices, selected []string) []Option {
	out := make([]Option, 0, len(choices))
	for _, c := range choices {
		out = append(out, Option{Value: c, Checked: slices.Contains(selected, c)})
	}
	for _, s := range selected {
		if !slices.Contains(choices, s) {
			out = append(out, Option{Value: s, Checked: true})
		}
	}
	return out
}

// Resubmit rebuilds the modal from a rejected submission so that the user
// can correct it without retyping.
func (v *View) Resubmit(id string, form FormReader) *EditForm {
	title := "Add New Item"
	if id != "" {
		title = "Edit Item"
	}

	return &EditForm{
		ID:     id,
		Title:  title,
		Name:   strings.TrimSpace(form.Name()),
		Price:  strings.TrimSpace(form.Price()),
		Colors: options(v.opts.Colors, cleanSet(form.SelectedColors())),
		Sizes:  options(v.opts.Sizes, cleanSet(form.SelectedSizes())),
		Tags:   options(v.opts.FilterTags, cleanSet(form.SelectedTags())),
	}
}
