// Package importer implements the batch import CLI.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	glossaryimporter "github.com/forward-louisville/glossary/internal/glossary/importer"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
)

const defaultDBPath = "data/glossary.db"

// Config holds the importer command configuration.
type Config struct {
	DBPath string `env:"GLOSSARY_DB_PATH"`
	Input  string
	DryRun bool
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{DBPath: defaultDBPath}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the term database")
	fs.StringVar(&cfg.Input, "input", "", "path to the JSON batch file (- for stdin)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate the batch without writing")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run imports one batch and writes the report as JSON.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}

	data, err := readInput(cfg.Input, in)
	if err != nil {
		return err
	}

	items, err := glossaryimporter.ParseBatch(data)
	if err != nil {
		return err
	}

	var report glossaryimporter.Report
	if cfg.DryRun {
		report = glossaryimporter.Validate(items)
	} else {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open term store: %w", err)
		}
		defer store.Close()

		report, err = glossaryimporter.New(service.New(store)).Import(ctx, items)
		if err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("write import report: %w", err)
	}
	return nil
}

// readInput loads the batch from a file, or from in when the path is
// "-" or empty.
func readInput(path string, in io.Reader) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		if in == nil {
			return nil, errors.New("input file is required")
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read batch from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return data, nil
}
