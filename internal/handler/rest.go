package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/catalog"
	"github.com/vyrodovalexey/catalog-gallery/internal/gallery"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

// maxBodyBytes caps JSON request bodies; items may carry data URI images.
const maxBodyBytes = 16 << 20

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	store  store.Store
	items  ItemService
	ready  ReadyFunc
	logger *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. Reads go straight to
// the store; mutations go through items. A nil ready reports ready.
func NewRESTHandler(s store.Store, items ItemService, ready ReadyFunc, logger *zap.Logger) *RESTHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &RESTHandler{
		store:  s,
		items:  items,
		ready:  ready,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/items/export", h.ExportItems).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/tags", h.ListTags).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		h.writeJSON(w, http.StatusServiceUnavailable, model.NewSuccessResponse(ReadyResponse{Status: "loading"}))
		return
	}
	response := ReadyResponse{
		Status: "ready",
		Items:  h.store.Len(),
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ListItems handles GET /api/v1/items requests. The optional tag and
// max_price query parameters both apply.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	unbounded := catalog.Filter{MaxPrice: math.MaxFloat64, Tag: catalog.TagAll}
	filter, err := catalog.ParseFilter(query.Get("tag"), query.Get("max_price"), unbounded)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(catalog.Apply(items, filter)))
}

// ExportItems handles GET /api/v1/items/export requests with the whole
// catalog as a downloadable document.
func (h *RESTHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := store.Export(r.Context(), h.store, &buf); err != nil {
		h.logger.Error("failed to export catalog", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to export catalog")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.ExportFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("failed to write export", zap.Error(err))
	}
}

// ListTags handles GET /api/v1/tags requests.
func (h *RESTHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve tags")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(catalog.Tags(items)))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	id, err := h.items.Create(ctx, fields)
	if err != nil {
		h.handleError(w, err, "create item")
		return
	}

	item := model.Item{ID: id, ItemFields: fields.Clone()}
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /api/v1/items/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	if err := h.items.Update(ctx, id, fields); err != nil {
		h.handleError(w, err, "update item")
		return
	}

	item := model.Item{ID: id, ItemFields: fields.Clone()}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(item))
}

// DeleteItem handles DELETE /api/v1/items/{id} requests. Unknown IDs are
// ignored.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.items.Delete(ctx, id); err != nil {
		h.handleError(w, err, "delete item")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *RESTHandler) decodeFields(w http.ResponseWriter, r *http.Request) (model.ItemFields, bool) {
	var input model.ItemFields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return input, false
	}
	return input, true
}

// handleError maps domain errors to HTTP responses.
func (h *RESTHandler) handleError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	case errors.Is(err, gallery.ErrMissingFields), errors.Is(err, model.ErrMissingImage):
		h.logger.Warn("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: gallery.ErrMissingFields.Error(),
			Fields:  model.FormatValidationError(err),
		})
	case errors.Is(err, store.ErrIDSpaceExhausted):
		h.logger.Error("id allocation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "could not allocate an item ID")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, h.logger, status, data)
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
