// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/config"
	"github.com/vyrodovalexey/catalog-gallery/internal/gallery"
	"github.com/vyrodovalexey/catalog-gallery/internal/handler"
	"github.com/vyrodovalexey/catalog-gallery/internal/middleware"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	logger     *zap.Logger
	wsHandler  *handler.WebSocketHandler
	ready      atomic.Bool
}

// GalleryOptions maps the configuration onto gallery view options.
func GalleryOptions(cfg *config.Config) gallery.Options {
	return gallery.Options{
		DefaultMaxPrice: cfg.DefaultMaxPrice,
		PriceRangeMax:   cfg.PriceRangeMax,
		FilterTags:      cfg.FilterTags,
		Colors:          cfg.ColorOptions,
		Sizes:           cfg.SizeOptions,
		CacheSize:       cfg.RenderCacheSize,
	}
}

// New creates a new Server instance. The hub must be the notifier the view
// was built with so that mutations reach websocket clients. The server
// reports not ready until MarkReady is called.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	itemStore store.Store,
	view *gallery.View,
	hub *handler.WebSocketHandler,
) *Server {
	router := mux.NewRouter()

	s := &Server{
		router:    router,
		config:    cfg,
		logger:    logger,
		wsHandler: hub,
	}

	s.setupMiddleware()
	s.setupRoutes(itemStore, view)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}

	// First listed = outermost.
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
	}
	if s.config.MetricsEnabled {
		chain = append(chain, middleware.Metrics())
	}
	chain = append(chain,
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
		middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders),
		middleware.ReadinessGate(s.IsReady),
	)

	s.router.Use(mux.MiddlewareFunc(middleware.Chain(chain...)))
}

// setupRoutes configures the API, gallery and websocket routes.
func (s *Server) setupRoutes(itemStore store.Store, view *gallery.View) {
	restHandler := handler.NewRESTHandler(itemStore, view, s.IsReady, s.logger)
	restHandler.RegisterRoutes(s.router)

	galleryHandler := handler.NewGalleryHandler(view, s.config.MaxImageBytes, s.logger)
	galleryHandler.RegisterRoutes(s.router)

	if s.wsHandler == nil {
		s.wsHandler = handler.NewWebSocketHandler(s.logger)
	}
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// Matching every preflight lets the CORS middleware answer it.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// MarkReady records that the initial catalog load has finished.
func (s *Server) MarkReady() {
	s.ready.Store(true)
	s.logger.Info("server ready")
}

// IsReady reports whether /ready answers 200.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.ready.Store(false)

	// Websocket connections are hijacked and not tracked by http.Server.
	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
