// Package handler provides the HTTP handlers of the catalog gallery: the
// JSON API, the HTML gallery and the websocket change feed.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

// ReadyFunc reports whether the initial catalog load has finished.
type ReadyFunc func() bool

// ItemService performs validated catalog mutations and notifies
// subscribers. The gallery view implements it.
type ItemService interface {
	Create(ctx context.Context, fields model.ItemFields) (string, error)
	Update(ctx context.Context, id string, fields model.ItemFields) error
	Delete(ctx context.Context, id string) error
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
