// Package main imports a JSON batch of glossary terms.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/forward-louisville/glossary/internal/platform/cmd"
	importercmd "github.com/forward-louisville/glossary/internal/tools/importer"
)

func main() {
	cfg, err := importercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[IMPORTER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceImporter, func(ctx context.Context) error {
		return importercmd.Run(ctx, cfg, os.Stdin, os.Stdout)
	})
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
}
