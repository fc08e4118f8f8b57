package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/octonet/internal/cache"
	"github.com/rohankatakam/octonet/internal/github"
	"github.com/rohankatakam/octonet/internal/graph"
)

const shutdownTimeout = 10 * time.Second

// GraphBuilder builds an organization graph for one credential
type GraphBuilder interface {
	Build(ctx context.Context, token string) (*graph.Graph, error)
}

// Verifier checks that a credential can read the organization
type Verifier interface {
	Verify(ctx context.Context, token string) (*github.RateLimit, error)
}

// Options configures a Server
type Options struct {
	Addr string
	// DefaultToken is used when a request carries no bearer token
	DefaultToken string
	Cache        *cache.Manager
	Logger       logrus.FieldLogger
}

// Server exposes the graph over HTTP
type Server struct {
	builder      GraphBuilder
	verifier     Verifier
	cache        *cache.Manager
	defaultToken string
	logger       logrus.FieldLogger
	httpServer   *http.Server
}

// New creates a server and its routes
func New(builder GraphBuilder, verifier Verifier, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cacheManager := opts.Cache
	if cacheManager == nil {
		cacheManager = cache.NewManager(nil, 0, logger)
	}

	s := &Server{
		builder:      builder,
		verifier:     verifier,
		cache:        cacheManager,
		defaultToken: opts.DefaultToken,
		logger:       logger,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/graph.json", s.handleGraph)
	r.Get("/verify", s.handleVerify)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
