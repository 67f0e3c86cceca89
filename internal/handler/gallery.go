package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/catalog"
	"github.com/vyrodovalexey/catalog-gallery/internal/gallery"
	"github.com/vyrodovalexey/catalog-gallery/internal/imaging"
	"github.com/vyrodovalexey/catalog-gallery/internal/middleware"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

const (
	// multipartMemory is how much of a multipart form is kept in memory.
	multipartMemory = 8 << 20
	// formOverhead is allowed on top of the image limit for the text fields.
	formOverhead = 1 << 20
)

// GalleryHandler serves the HTML gallery. Filter state travels in the
// query string, so every request carries its own tag and price ceiling.
type GalleryHandler struct {
	view     *gallery.View
	maxImage int64
	logger   *zap.Logger
}

// NewGalleryHandler creates a new GalleryHandler instance.
func NewGalleryHandler(view *gallery.View, maxImage int64, logger *zap.Logger) *GalleryHandler {
	if maxImage <= 0 {
		maxImage = imaging.DefaultMaxBytes
	}
	return &GalleryHandler{
		view:     view,
		maxImage: maxImage,
		logger:   logger,
	}
}

// RegisterRoutes registers the gallery routes with the router.
func (h *GalleryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/items/new", h.NewItem).Methods(http.MethodGet)
	router.HandleFunc("/items", h.SaveItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{id}/edit", h.EditItem).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}/delete", h.ConfirmDelete).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}/delete", h.DeleteItem).Methods(http.MethodPost)
}

// Index handles GET / requests.
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	state, notice := h.state(r)
	h.render(w, r, http.StatusOK, gallery.Page{State: state, Notice: notice})
}

// NewItem handles GET /items/new requests with an empty add modal.
func (h *GalleryHandler) NewItem(w http.ResponseWriter, r *http.Request) {
	state, _ := h.state(r)
	h.render(w, r, http.StatusOK, gallery.Page{State: state, Form: h.view.NewForm()})
}

// EditItem handles GET /items/{id}/edit requests with a prefilled modal.
func (h *GalleryHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	state, _ := h.state(r)
	id := mux.Vars(r)["id"]

	form, err := h.view.Edit(r.Context(), id)
	if err != nil {
		h.renderError(w, r, state, err)
		return
	}

	h.render(w, r, http.StatusOK, gallery.Page{State: state, Form: form})
}

// ConfirmDelete handles GET /items/{id}/delete requests.
func (h *GalleryHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	state, _ := h.state(r)
	id := mux.Vars(r)["id"]

	card, err := h.view.ConfirmDelete(r.Context(), id)
	if err != nil {
		h.renderError(w, r, state, err)
		return
	}

	h.render(w, r, http.StatusOK, gallery.Page{State: state, Confirm: card})
}

// DeleteItem handles POST /items/{id}/delete requests.
func (h *GalleryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	state, _ := h.state(r)
	id := mux.Vars(r)["id"]

	if err := h.view.Delete(r.Context(), id); err != nil {
		h.renderError(w, r, state, err)
		return
	}

	h.redirect(w, r, state)
}

// SaveItem handles POST /items requests. A non-empty id form value edits
// that item; otherwise a new item is created.
func (h *GalleryHandler) SaveItem(w http.ResponseWriter, r *http.Request) {
	state, _ := h.state(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImage+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Warn("invalid item form", zap.Error(err))
		h.render(w, r, http.StatusBadRequest, gallery.Page{
			State:  state,
			Form:   h.view.NewForm(),
			Notice: "The submitted form could not be read.",
		})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := multipartForm{r: r}
	id := strings.TrimSpace(r.PostFormValue("id"))

	savedID, err := h.view.Save(r.Context(), id, form)
	if err != nil {
		status, notice := classify(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to save item",
				zap.String("item_id", id),
				zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
		} else {
			h.logger.Debug("item save rejected", zap.String("item_id", id), zap.Error(err))
		}
		h.render(w, r, status, gallery.Page{
			State:  state,
			Form:   h.view.Resubmit(id, form),
			Notice: notice,
		})
		return
	}

	h.logger.Debug("item saved", zap.String("item_id", savedID))
	h.redirect(w, r, state)
}

// state derives the gallery state from the tag and max_price parameters.
// An unusable price falls back to the default and yields a notice.
func (h *GalleryHandler) state(r *http.Request) (gallery.State, string) {
	def := h.view.DefaultState()
	query := r.URL.Query()

	filter, err := catalog.ParseFilter(query.Get("tag"), query.Get("max_price"), def.Filter())
	if err != nil {
		return def, "Invalid price filter; showing the default range."
	}

	return gallery.State{ActiveTag: filter.Tag, MaxPrice: filter.MaxPrice}, ""
}

func (h *GalleryHandler) render(w http.ResponseWriter, r *http.Request, status int, page gallery.Page) {
	var buf bytes.Buffer
	if err := h.view.Render(r.Context(), &buf, page); err != nil {
		h.logger.Error("failed to render gallery",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("failed to write gallery page", zap.Error(err))
	}
}

func (h *GalleryHandler) renderError(w http.ResponseWriter, r *http.Request, state gallery.State, err error) {
	status, notice := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("gallery request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	h.render(w, r, status, gallery.Page{State: state, Notice: notice})
}

func (h *GalleryHandler) redirect(w http.ResponseWriter, r *http.Request, state gallery.State) {
	http.Redirect(w, r, "/?"+gallery.StateQuery(state), http.StatusSeeOther)
}

// classify maps an error to a status code and the notice shown to the user.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, gallery.ErrMissingFields):
		return http.StatusBadRequest, "Please fill in all required fields."
	case errors.Is(err, model.ErrMissingImage), errors.Is(err, imaging.ErrEmptyImage):
		return http.StatusBadRequest, "Please choose an image for the item."
	case errors.Is(err, imaging.ErrNotImage):
		return http.StatusBadRequest, "The selected file is not an image."
	case errors.Is(err, imaging.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "The selected image is too large."
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "That item no longer exists."
	case errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest, "Invalid item ID."
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

// multipartForm reads an item form from a parsed multipart request.
type multipartForm struct {
	r *http.Request
}

func (f multipartForm) Name() string             { return f.r.PostFormValue("name") }
func (f multipartForm) Price() string            { return f.r.PostFormValue("price") }
func (f multipartForm) SelectedColors() []string { return f.r.PostForm["colors"] }
func (f multipartForm) SelectedSizes() []string  { return f.r.PostForm["sizes"] }
func (f multipartForm) SelectedTags() []string   { return f.r.PostForm["tags"] }

// Image returns the uploaded file, or nil when the file input was left empty.
func (f multipartForm) Image(_ context.Context) (io.ReadCloser, error) {
	file, header, err := f.r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, nil
	}
	return file, nil
}
