package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cards/internal/cache"
	"cards/internal/core"
	applog "cards/internal/log"
	"cards/internal/middleware/security"
	"cards/internal/middleware/trace"
	"cards/internal/photo"
	"cards/internal/ports"
	"cards/internal/services"
	appweb "cards/web"
)

// Options configures NewServer. Store is required.
type Options struct {
	Store          ports.Store
	Photos         *photo.Processor
	Logger         *applog.Logger
	CacheTTL       time.Duration
	MaxUploadBytes int64
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	store        ports.Store
	cards        *services.CardService
	transactions *services.TransactionService
	categories   *services.CategoryService

	maxUploadBytes int64
	startedAt      time.Time

	listCache       *cache.LRUCache[[]core.CardTransaction]
	cacheManager    *cache.Manager
	traceMiddleware *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("new server: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.Photos == nil {
		opts.Photos = photo.NewProcessor(0, 0, opts.MaxUploadBytes)
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:      t,
		logger:         logger.WithComponent(applog.ComponentHTTP),
		store:          opts.Store,
		maxUploadBytes: opts.MaxUploadBytes,
		startedAt:      time.Now(),
		listCache:      cache.NewLRUCache[[]core.CardTransaction](64, opts.CacheTTL),
		cacheManager:   cache.NewManager(),
	}
	s.transactions = services.NewTransactionService(opts.Store, opts.Photos).WithCache(s.listCache)
	s.cards = services.NewCardService(opts.Store).WithLists(s.transactions)
	s.categories = services.NewCategoryService(opts.Store).WithLists(s.transactions)
	s.traceMiddleware = trace.NewMiddleware(logger, security.ClientIP)

	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	bodyLimit := security.BodyLimitMiddleware(opts.MaxUploadBytes + multipartMemory)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           bodyLimit(s.traceMiddleware.Middleware(headers.Middleware(s.routes()))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("cards").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /cards/new", s.handleNewCard)
	mux.HandleFunc("POST /cards", s.handleCreateCard)
	mux.HandleFunc("POST /cards/delete-all", s.handleDeleteAllCards)
	mux.HandleFunc("GET /cards/{id}/edit", s.handleEditCard)
	mux.HandleFunc("POST /cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("POST /cards/{id}/delete", s.handleDeleteCard)

	mux.HandleFunc("GET /cards/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /cards/{id}/transactions/new", s.handleNewTransaction)
	mux.HandleFunc("POST /cards/{id}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /cards/{id}/filter", s.handleFilter)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDeleteTransaction)
	mux.HandleFunc("GET /transactions/{id}/photo", s.handleTransactionPhoto)

	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("POST /categories/{id}/delete", s.handleDeleteCategory)

	return mux
}

// Shutdown stops the cache janitor and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
