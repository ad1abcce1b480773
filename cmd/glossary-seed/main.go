// Package main seeds the glossary from a declarative YAML fixture.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
	seedcmd "github.com/forward-louisville/glossary/internal/tools/seed"
)

func main() {
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SEED] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceSeed, func(ctx context.Context) error {
		return seedcmd.Run(ctx, cfg, os.Stdout)
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
