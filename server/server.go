// Package server exposes the public feed, live updates, moderation and
// scraper control over HTTP. Auth is assumed to be handled upstream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/nmitic/sunat-noticia/pkg/domain"
	"github.com/nmitic/sunat-noticia/pkg/repository"
	"github.com/nmitic/sunat-noticia/pkg/scraper"
)

// Config holds HTTP server settings
type Config struct {
	Listen  string
	Timeout time.Duration
	Version string
	Debug   bool
}

// NewsStore is the persistence surface consumed by the handlers
type NewsStore interface {
	ListPublished(ctx context.Context, filter repository.Filter) ([]domain.NewsItem, error)
	ListUnpublished(ctx context.Context, limit int) ([]domain.NewsItem, error)
	GetByID(ctx context.Context, id int64) (*domain.NewsItem, error)
	SetPublished(ctx context.Context, id int64, published bool, flags []domain.Flag) (*domain.NewsItem, error)
	Delete(ctx context.Context, id int64) error
	DeleteBatch(ctx context.Context, ids []int64) (int64, error)
}

// RunStore provides the run-history log
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]domain.ScraperRun, error)
}

// Scrapers is the scraper registry surface: listing and manual triggering
type Scrapers interface {
	List() []scraper.Config
	RunManually(ctx context.Context, name string) (scraper.Result, error)
}

// Broadcaster distributes newly published items to SSE clients
type Broadcaster interface {
	Register() (<-chan domain.NewsItem, func())
	Broadcast(item domain.NewsItem)
	Count() int
}

// Injector mixes ads into a feed page
type Injector interface {
	Inject(items []domain.FeedEntry, startFrom int) ([]domain.FeedEntry, int)
}

// Server represents HTTP server instance
type Server struct {
	cfg      Config
	news     NewsStore
	runs     RunStore
	scrapers Scrapers
	live     Broadcaster
	injector Injector

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance
func New(cfg Config, news NewsStore, runs RunStore, scrapers Scrapers, live Broadcaster, injector Injector) *Server {
	s := &Server{
		cfg:      cfg,
		news:     news,
		runs:     runs,
		scrapers: scrapers,
		live:     live,
		injector: injector,
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("sunat-noticia", "nmitic", s.cfg.Version))
	s.router.Use(rest.Ping)

	if s.cfg.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /news", s.newsHandler)
		r.HandleFunc("GET /news/stream", s.streamHandler)
		r.HandleFunc("PATCH /news/{id}", s.moderateHandler)
		r.HandleFunc("DELETE /news/{id}", s.deleteHandler)
		r.HandleFunc("POST /news/batch", s.batchPublishHandler)
		r.HandleFunc("DELETE /news/batch", s.batchDeleteHandler)

		r.HandleFunc("GET /admin/pending", s.pendingHandler)
		r.HandleFunc("GET /admin/runs", s.runsHandler)

		r.HandleFunc("GET /scrapers", s.scrapersHandler)
		r.HandleFunc("POST /scrapers/{name}/run", s.triggerHandler)
	})
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
