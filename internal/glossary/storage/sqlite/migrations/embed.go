// Package migrations embeds the glossary SQLite schema migrations.
package migrations

import "embed"

// FS holds the embedded .sql migration files.
//
//go:embed *.sql
var FS embed.FS
