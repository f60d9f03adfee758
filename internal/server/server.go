// Package server exposes the sync engine and the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/syncer"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// Fetcher returns every open issue of a repository, fully paginated.
type Fetcher interface {
	ListOpenIssues(ctx context.Context, repo string) ([]*types.IssueSnapshot, error)
}

// Analyzer answers a prompt over a repository's cached issues.
type Analyzer interface {
	Analyze(ctx context.Context, issues []*types.IssueSnapshot, prompt string) (string, error)
}

// Config wires the collaborators a Server needs. Analyzer may be nil, in
// which case /analyze answers 503.
type Config struct {
	Engine   *syncer.Engine
	Fetcher  Fetcher
	Analyzer Analyzer
	Logger   *slog.Logger
	Version  string

	// ShutdownTimeout bounds how long Stop waits for in-flight requests
	ShutdownTimeout time.Duration
}

const (
	defaultShutdownTimeout = 10 * time.Second
	maxRequestBody         = 1 << 20
)

// Health states reported by GET /health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Server serves the HTTP API. It is an http.Handler, so tests can drive it
// through httptest without a listener.
type Server struct {
	engine   *syncer.Engine
	fetcher  Fetcher
	analyzer Analyzer
	logger   *slog.Logger
	version  string

	handler         http.Handler
	shutdownTimeout time.Duration
	startTime       time.Time

	mu        sync.Mutex
	http      *http.Server
	addr      net.Addr
	readyChan chan struct{}
	readyOnce sync.Once
}

// New builds a Server. Engine and Fetcher are required.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("server: fetcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	s := &Server{
		engine:          cfg.Engine,
		fetcher:         cfg.Fetcher,
		analyzer:        cfg.Analyzer,
		logger:          logger,
		version:         cfg.Version,
		shutdownTimeout: timeout,
		startTime:       time.Now(),
		readyChan:       make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /issues", s.handleIssues)
	s.handler = s.withRequestLog(s.withVersionCheck(mux))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves until ctx is cancelled or Stop is called.
// It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.http = httpServer
	s.addr = listener.Addr()
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", listener.Addr().String(), "version", s.version)
	s.readyOnce.Do(func() { close(s.readyChan) })

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		if err := s.Stop(); err != nil {
			return err
		}
		<-errChan
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// WaitReady returns a channel closed once Start is accepting connections.
func (s *Server) WaitReady() <-chan struct{} {
	return s.readyChan
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop gracefully shuts the server down, waiting for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	httpServer := s.http
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
