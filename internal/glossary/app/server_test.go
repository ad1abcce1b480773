package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestNewServerValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Config{DBPath: "x.db"}); err == nil {
		t.Fatal("expected error for missing http address")
	}
	if _, err := NewServer(Config{HTTPAddr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error for missing database path")
	}
}

func TestServerServesUntilContextEnds(t *testing.T) {
	t.Parallel()

	server, err := NewServer(Config{
		HTTPAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "data", "glossary.db"),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
