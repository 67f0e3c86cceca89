package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// ExportFilename is the name offered for catalog downloads.
const ExportFilename = "items.json"

// maxCatalogBytes caps the size of a catalog document read from a source.
const maxCatalogBytes = 64 << 20

// Loader reads the initial catalog from a file path or an HTTP(S) URL.
type Loader struct {
	client *http.Client
}

// NewLoader creates a Loader. A nil client falls back to http.DefaultClient.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client}
}

// Load fetches and decodes the catalog at source. Every record is validated;
// the first invalid record fails the whole load.
func (l *Loader) Load(ctx context.Context, source string) (model.Catalog, error) {
	if source == "" {
		return nil, fmt.Errorf("load catalog: empty source")
	}

	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", source, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	catalog, err := Decode(io.LimitReader(rc, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", source, err)
	}

	return catalog, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !isRemote(source) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return resp.Body, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Decode parses an id-keyed catalog document and validates each record.
func Decode(r io.Reader) (model.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return model.Catalog{}, nil
	}

	var catalog model.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	for id, item := range catalog {
		if id == "" {
			return nil, fmt.Errorf("decoding catalog: %w", ErrInvalidID)
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %s: %w", id, err)
		}
	}

	return catalog, nil
}

// Export writes the full repository as an indented id-keyed JSON document.
func Export(ctx context.Context, s Store, w io.Writer) error {
	catalog, err := s.All(ctx)
	if err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}

	return nil
}
