// Package mcp wires configuration and lifecycle for the glossary MCP
// server command.
package mcp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	glossarymcp "github.com/forward-louisville/glossary/internal/mcp"

	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
	"github.com/forward-louisville/glossary/internal/platform/timeouts"
)

const (
	// TransportStdio serves MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP serves MCP over a streamable HTTP endpoint.
	TransportHTTP = "http"

	defaultDBPath   = "data/glossary.db"
	defaultHTTPAddr = "localhost:8091"
)

// Config holds the MCP command configuration.
type Config struct {
	DBPath    string `env:"GLOSSARY_DB_PATH"`
	Transport string `env:"GLOSSARY_MCP_TRANSPORT"`
	HTTPAddr  string `env:"GLOSSARY_MCP_HTTP_ADDR"`
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{DBPath: defaultDBPath, Transport: TransportStdio, HTTPAddr: defaultHTTPAddr}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if strings.TrimSpace(cfg.Transport) == "" {
		cfg.Transport = TransportStdio
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the term database")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "MCP transport (stdio or http)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address for the http transport")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open term store: %w", err)
		}
		defer store.Close()

		server, err := glossarymcp.New(store)
		if err != nil {
			return fmt.Errorf("init MCP server: %w", err)
		}

		switch cfg.Transport {
		case TransportStdio:
			return server.Serve(ctx)
		case TransportHTTP:
			return serveHTTP(ctx, cfg.HTTPAddr, server.HTTPHandler())
		default:
			return fmt.Errorf("transport %q is not supported", cfg.Transport)
		}
	})
}

// serveHTTP runs the streamable HTTP transport until the context ends.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("glossary mcp listening on %s", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown mcp http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve mcp http: %w", err)
	}
}
