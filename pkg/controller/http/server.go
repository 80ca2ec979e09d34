package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
)

type config struct {
	addr            string
	scanToken       string
	shutdownTimeout time.Duration
}

// Option configures Server
type Option func(*config)

// WithAddr sets the listen address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithScanToken requires "Authorization: Bearer <token>" to trigger a scan
func WithScanToken(token string) Option {
	return func(c *config) {
		c.scanToken = token
	}
}

// WithShutdownTimeout bounds the graceful shutdown of Run
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		c.shutdownTimeout = d
	}
}

// Server serves the scan API
type Server struct {
	*http.Server
	shutdownTimeout time.Duration
}

// NewServer creates a new HTTP server
func NewServer(ctx context.Context, scanUC interfaces.ScanUseCase, opts ...Option) (*Server, error) {
	cfg := &config{
		addr:            "localhost:8080",
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if scanUC == nil {
		return nil, goerr.New("scan use case is required")
	}

	return &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           newRouter(ctx, NewScanHandler(scanUC, cfg.scanToken)),
			ReadHeaderTimeout: 15 * time.Second,
		},
		shutdownTimeout: cfg.shutdownTimeout,
	}, nil
}

func newRouter(ctx context.Context, scans *ScanHandler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth(scans))
	router.Route("/scans", func(r chi.Router) {
		r.Post("/", scans.Trigger)
		r.Get("/latest", scans.Latest)
	})
	return router
}

// Run serves until ctx is cancelled, then shuts the server down gracefully
func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.From(ctx)
	errCh := make(chan error, 1)

	go func() {
		logger.Info("HTTP server starting", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", s.Addr))
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server gracefully")
	}
	logger.Info("HTTP server stopped")
	return nil
}
