package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zapcore.Level
	}{
		{"debug level", "debug", zapcore.DebugLevel},
		{"info level", "info", zapcore.InfoLevel},
		{"warn level", "warn", zapcore.WarnLevel},
		{"error level", "error", zapcore.ErrorLevel},
		{"invalid level defaults to info", "invalid", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			logger, err := initLogger(tt.level)

			// Assert
			if err != nil {
				t.Fatalf("initLogger() error = %v", err)
			}
			if logger == nil {
				t.Fatal("initLogger() returned nil logger")
			}
			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("level %s should be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level %s should be disabled", tt.wantLevel-1)
			}
		})
	}
}

// recordingReplacer captures the catalog handed over by loadCatalog.
type recordingReplacer struct {
	catalog model.Catalog
	err     error
}

func (r *recordingReplacer) Replace(_ context.Context, c model.Catalog) error {
	if r.err != nil {
		return r.err
	}
	r.catalog = c
	return nil
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const validCatalog = `{
  "k3j9x2ab": {
    "name": "Denim Jacket",
    "price": 89.99,
    "image": "https://example.com/jacket.jpg",
    "colors": ["Blue"],
    "sizes": ["M", "L"],
    "tags": ["outerwear"]
  }
}`

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name       string
		source     func(t *testing.T) string
		replaceErr error
		wantOK     bool
		wantItems  int
		wantLogMsg string
		wantLogLvl zapcore.Level
	}{
		{
			name:       "valid file",
			source:     func(t *testing.T) string { return writeCatalog(t, validCatalog) },
			wantOK:     true,
			wantItems:  1,
			wantLogMsg: "catalog loaded",
			wantLogLvl: zapcore.InfoLevel,
		},
		{
			name:       "no source",
			source:     func(*testing.T) string { return "" },
			wantLogMsg: "no catalog data source configured, starting empty",
			wantLogLvl: zapcore.InfoLevel,
		},
		{
			name:       "missing file",
			source:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			wantLogMsg: "failed to load catalog",
			wantLogLvl: zapcore.ErrorLevel,
		},
		{
			name:       "array document rejected",
			source:     func(t *testing.T) string { return writeCatalog(t, `[{"id":"a"}]`) },
			wantLogMsg: "failed to load catalog",
			wantLogLvl: zapcore.ErrorLevel,
		},
		{
			name:       "replace fails",
			source:     func(t *testing.T) string { return writeCatalog(t, validCatalog) },
			replaceErr: errors.New("store closed"),
			wantLogMsg: "failed to install catalog",
			wantLogLvl: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			core, logs := observer.New(zapcore.DebugLevel)
			target := &recordingReplacer{err: tt.replaceErr}

			// Act
			ok := loadCatalog(context.Background(), store.NewLoader(nil), target, tt.source(t), zap.New(core))

			// Assert
			if ok != tt.wantOK {
				t.Errorf("loadCatalog() = %v, want %v", ok, tt.wantOK)
			}
			if len(target.catalog) != tt.wantItems {
				t.Errorf("installed %d items, want %d", len(target.catalog), tt.wantItems)
			}
			entries := logs.FilterMessage(tt.wantLogMsg).All()
			if len(entries) != 1 {
				t.Fatalf("log %q written %d times, want 1", tt.wantLogMsg, len(entries))
			}
			if entries[0].Level != tt.wantLogLvl {
				t.Errorf("log level = %s, want %s", entries[0].Level, tt.wantLogLvl)
			}
		})
	}
}

func TestLoadCatalog_KeepsIDs(t *testing.T) {
	// Arrange
	target := &recordingReplacer{}
	source := writeCatalog(t, validCatalog)

	// Act
	loadCatalog(context.Background(), store.NewLoader(nil), target, source, zap.NewNop())

	// Assert
	item, ok := target.catalog["k3j9x2ab"]
	if !ok {
		t.Fatal("item should be keyed by its document key")
	}
	if item.ID != "k3j9x2ab" || item.Name != "Denim Jacket" {
		t.Errorf("item = %+v", item)
	}
}
