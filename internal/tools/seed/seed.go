// Package seed loads a declarative YAML fixture of starter terms.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	glossaryimporter "github.com/forward-louisville/glossary/internal/glossary/importer"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
)

const defaultDBPath = "data/glossary.db"

// Config holds the seed command configuration.
type Config struct {
	DBPath  string `env:"GLOSSARY_DB_PATH"`
	Fixture string
	DryRun  bool
}

// Fixture is a declarative set of starter terms.
type Fixture struct {
	Terms []FixtureTerm `yaml:"terms"`
}

// FixtureTerm declares one starter term.
type FixtureTerm struct {
	Name              string   `yaml:"name"`
	Definition        string   `yaml:"definition"`
	WhyItMatters      string   `yaml:"why_it_matters"`
	LouisvilleContext string   `yaml:"louisville_context"`
	DataStats         string   `yaml:"data_stats"`
	CampaignAlignment string   `yaml:"campaign_alignment"`
	Category          string   `yaml:"category"`
	Tags              []string `yaml:"tags"`
	Related           []string `yaml:"related"`
	Priority          string   `yaml:"priority"`
	Featured          bool     `yaml:"featured"`
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
	fs.StringVar(&cfg.Fixture, "fixture", "", "path to the YAML fixture")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate the fixture without writing")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("parse seed fixture: %w", err)
	}
	if len(fixture.Terms) == 0 {
		return Fixture{}, errors.New("seed fixture declares no terms")
	}
	return fixture, nil
}

// Items converts the fixture into an import batch.
func (f Fixture) Items() []glossaryimporter.Item {
	items := make([]glossaryimporter.Item, 0, len(f.Terms))
	for _, term := range f.Terms {
		items = append(items, glossaryimporter.Item{
			Name:              term.Name,
			Definition:        term.Definition,
			WhyItMatters:      term.WhyItMatters,
			LouisvilleContext: term.LouisvilleContext,
			DataStats:         term.DataStats,
			CampaignAlignment: term.CampaignAlignment,
			Category:          term.Category,
			Tags:              term.Tags,
			Related:           term.Related,
			Priority:          term.Priority,
			Featured:          term.Featured,
		})
	}
	return items
}

// Run loads the fixture through the import pipeline and writes the
// report as JSON.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	path := strings.TrimSpace(cfg.Fixture)
	if path == "" {
		return errors.New("fixture path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed fixture: %w", err)
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		return err
	}
	items := fixture.Items()

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
		return fmt.Errorf("write seed report: %w", err)
	}
	return nil
}
