// Package api serves the catalog snapshot to the Telegram mini app.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/m3rciful/bakerybot/core/logger"
	"github.com/m3rciful/bakerybot/internal/catalog"
)

// Snapshots is the read side of the catalog store.
type Snapshots interface {
	Current() *catalog.Snapshot
	Raw() (*catalog.Snapshot, []byte, error)
}

// Options configures the HTTP server.
type Options struct {
	Listen         string
	AllowedOrigins []string
}

// Server exposes the catalog over HTTP.
type Server struct {
	store  Snapshots
	router *chi.Mux
	server *http.Server
}

// NewServer builds the router; Run starts listening.
func NewServer(store Snapshots, opts Options) *Server {
	s := &Server{store: store}
	s.router = s.routes(opts.AllowedOrigins)
	s.server = &http.Server{
		Addr:              opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "api", "listen", slog.String("listen", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info(context.Background(), "api", "shutdown")
	return nil
}

func (s *Server) routes(origins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/catalog", s.catalog)
		r.Get("/categories", s.categories)
		r.Get("/products", s.products)
		r.Get("/products/{category}", s.productsByCategory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok", "catalog_ready": false}
	if snap := s.store.Current(); snap != nil {
		body["catalog_ready"] = true
		body["version"] = snap.Metadata.Version
		body["last_updated"] = snap.Metadata.LastUpdated
		body["products_count"] = snap.Metadata.ProductsCount
		body["categories_count"] = snap.Metadata.CategoriesCount
	}
	writeJSON(w, http.StatusOK, body)
}

// catalog serves the cache document byte for byte.
func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	snap, raw, err := s.store.Raw()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	if snap.Metadata.Version != "" {
		etag := `"` + snap.Metadata.Version + `"`
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": snap.Categories})
}

func (s *Server) products(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": snap.Products})
}

// productsByCategory accepts both "category_7" and the bare id "7".
func (s *Server) productsByCategory(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	key := chi.URLParam(r, "category")
	if !strings.HasPrefix(key, "category_") {
		key = catalog.CategoryKey(key)
	}
	group, ok := snap.Products[key]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": key, "products": group})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		ctx := logger.WithRID(r.Context(), middleware.GetReqID(r.Context()))
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		if ww.Status() >= http.StatusInternalServerError {
			logger.Warn(ctx, "api", "request", attrs...)
			return
		}
		logger.Debug(ctx, "api", "request", attrs...)
	})
}
