package migrations

import "embed"

// FS contains embedded SQLite migrations for recipe storage.
//
//go:embed *.sql
var FS embed.FS
