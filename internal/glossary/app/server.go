// Package app wires the glossary service into a runnable HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/forward-louisville/glossary/internal/glossary/api/rest"
	"github.com/forward-louisville/glossary/internal/glossary/editorgrant"
	"github.com/forward-louisville/glossary/internal/glossary/importer"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
	"github.com/forward-louisville/glossary/internal/platform/httpx"
	"github.com/forward-louisville/glossary/internal/platform/observability"
	"github.com/forward-louisville/glossary/internal/platform/timeouts"
)

// Config defines the inputs for the glossary server.
type Config struct {
	HTTPAddr string
	DBPath   string
	// AuthEnabled gates writes behind editor grants. When set, Grant must
	// be a valid verifier config.
	AuthEnabled bool
	Grant       editorgrant.Config
	Logger      *log.Logger
}

// Server hosts the glossary HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *sqlite.Store
}

// NewServer opens the term store and assembles the HTTP stack.
func NewServer(cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open term store: %w", err)
	}

	svc := service.New(store)
	handler := rest.NewHandler(svc, importer.New(svc), rest.AuthConfig{
		Enabled: cfg.AuthEnabled,
		Grant:   cfg.Grant,
	})

	chained := httpx.Chain(handler.Mux(),
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(logger),
	)
	root := otelhttp.NewHandler(chained, "glossary-api")

	return &Server{
		httpAddr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           root,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("glossary server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("glossary api listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
