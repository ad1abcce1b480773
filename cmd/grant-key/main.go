// Package main provides a one-shot utility for editor grant key generation.
//
// It emits the asymmetric keypair used to sign and verify staff grants.
package main

import (
	"os"

	"github.com/forward-louisville/glossary/internal/platform/config"
	"github.com/forward-louisville/glossary/internal/tools/grantkey"
)

func main() {
	if err := grantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate editor grant key: %v", err)
	}
}
