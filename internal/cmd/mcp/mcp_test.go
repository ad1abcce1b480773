package mcp

import (
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("GLOSSARY_DB_PATH", "")
	t.Setenv("GLOSSARY_MCP_TRANSPORT", "")
	t.Setenv("GLOSSARY_MCP_HTTP_ADDR", "")

	fs := flag.NewFlagSet("glossary-mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Transport != TransportStdio || cfg.DBPath != defaultDBPath {
		t.Fatalf("cfg = %+v, want stdio defaults", cfg)
	}
}

func TestRunUnsupportedTransport(t *testing.T) {
	err := Run(context.Background(), Config{
		DBPath:    filepath.Join(t.TempDir(), "glossary.db"),
		Transport: "websocket",
	})
	if err == nil {
		t.Fatal("expected error for unsupported transport")
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("error = %v, want not supported", err)
	}
}
