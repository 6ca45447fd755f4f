// Package api exposes listing, file serving, indexing and search over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lexandro/docindex-mcp/index"
	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/tree"
)

// Banner is returned by GET /api/.
const Banner = "Document Search System API"

// Deps holds the components the handlers call into.
type Deps struct {
	Walker    *tree.Walker
	Store     index.Store
	Indexer   *indexer.Indexer
	Engine    *search.Engine
	Backend   string
	StartTime time.Time
	Logger    *slog.Logger
}

// Options configures the router middleware.
type Options struct {
	CORSOrigins    []string      // empty allows every origin
	RequestTimeout time.Duration // 0 disables the timeout; indexing is never subject to it
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(deps Deps, options Options) chi.Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	origins := options.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if options.RequestTimeout > 0 {
				r.Use(middleware.Timeout(options.RequestTimeout))
			}
			r.Get("/", handleBanner())
			r.Get("/files/tree", handleTree(deps))
			r.Get("/files/serve/*", handleServe(deps))
			r.Get("/search", handleSearch(deps))
			r.Get("/status", handleStatus(deps))
		})
		r.Post("/files/index", handleIndex(deps))
	})

	return r
}

// Server wraps http.Server with the router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Start listens until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"requestID", middleware.GetReqID(r.Context()),
				"elapsed", time.Since(start),
			)
		})
	}
}

type errorResponse struct {
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
