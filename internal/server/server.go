package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/sundayezeilo/shortlinks/internal/auth"
	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/health"
	"github.com/sundayezeilo/shortlinks/internal/httpx"
	"github.com/sundayezeilo/shortlinks/internal/metrics"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// Deps are the components the server routes to. Checker, Registry,
// HTTPMetrics and RateLimit are optional.
type Deps struct {
	Handler       *shortener.Handler
	Authenticator auth.Authenticator
	Checker       *health.Checker
	Registry      *prometheus.Registry
	HTTPMetrics   *httpx.HTTPMetrics
	RateLimit     httpx.Middleware
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config *config.Config
	logger *slog.Logger
	deps   Deps
	server *http.Server
	grpc   *grpc.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	if deps.Checker == nil {
		deps.Checker = health.NewChecker(health.DefaultCheckTimeout)
	}
	return &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start serves HTTP, and gRPC health when configured, until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 2)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("http server: %w", err)
		}
	}()

	if addr := s.config.Server.GRPCHealthAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			_ = s.server.Close()
			return fmt.Errorf("failed to listen for grpc health: %w", err)
		}
		s.grpc = health.NewGRPCServer(s.deps.Checker)
		go func() {
			s.logger.Info("starting grpc health server", "addr", lis.Addr().String())
			if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				serverErrors <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		s.stopGRPC()
		_ = s.server.Close()
		return err
	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes. Literal routes take precedence over
// GET /{code}, so reserved codes can never shadow them.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	h := s.deps.Handler

	requireAuth := auth.Require(s.deps.Authenticator, s.logger)
	shortenAuth := requireAuth
	if s.config.Auth.AllowAnonymous {
		shortenAuth = auth.Optional(s.deps.Authenticator, s.logger)
	}

	limit := s.deps.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	s.handle(mux, "GET /x/health", s.deps.Checker.Handler(
		s.config.Observability.ServiceName,
		s.config.Observability.ServiceVersion,
		s.logger,
	))
	if s.deps.Registry != nil {
		s.handle(mux, "GET /metrics", metrics.Handler(s.deps.Registry))
	}

	s.handle(mux, "POST /shorten", httpx.Chain(limit, shortenAuth)(http.HandlerFunc(h.Shorten)))
	s.handle(mux, "GET /history", httpx.Chain(limit, requireAuth)(http.HandlerFunc(h.History)))
	s.handle(mux, "GET /stats/{code}", limit(http.HandlerFunc(h.Stats)))
	s.handle(mux, "GET /{code}", limit(http.HandlerFunc(h.Redirect)))

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, s.deps.HTTPMetrics.Route(pattern, h))
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,
		httpx.Logger(s.logger),
		httpx.SecurityHeaders,
		httpx.CORS(s.config.Server.CORSOrigins),
	)(handler)
}

func (s *Server) stopGRPC() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")
	s.stopGRPC()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
