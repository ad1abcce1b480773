// Package glossary wires configuration and lifecycle for the glossary
// API server command.
package glossary

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/forward-louisville/glossary/internal/glossary/app"
	"github.com/forward-louisville/glossary/internal/glossary/editorgrant"
	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
)

const (
	defaultHTTPAddr = "localhost:8090"
	defaultDBPath   = "data/glossary.db"
)

// Config holds the glossary server command configuration.
type Config struct {
	HTTPAddr string `env:"GLOSSARY_HTTP_ADDR"`
	DBPath   string `env:"GLOSSARY_DB_PATH"`
	// NoAuth disables editor grant checks on write routes. Meant for
	// local development only.
	NoAuth bool
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{HTTPAddr: defaultHTTPAddr, DBPath: defaultDBPath}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the term database")
	fs.BoolVar(&cfg.NoAuth, "no-auth", false, "serve writes without editor grants (development only)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the glossary API server and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceGlossary, func(ctx context.Context) error {
		appCfg := app.Config{
			HTTPAddr: cfg.HTTPAddr,
			DBPath:   cfg.DBPath,
		}
		if cfg.NoAuth {
			log.Printf("editor grant checks disabled; writes are open")
		} else {
			grantCfg, err := editorgrant.LoadConfigFromEnv(time.Now)
			if err != nil {
				return fmt.Errorf("load editor grant config: %w", err)
			}
			appCfg.AuthEnabled = true
			appCfg.Grant = grantCfg
		}

		server, err := app.NewServer(appCfg)
		if err != nil {
			return fmt.Errorf("init glossary server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve glossary: %w", err)
		}
		return nil
	})
}
