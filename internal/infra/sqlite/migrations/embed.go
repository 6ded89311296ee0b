package migrations

import "embed"

// FS contains the embedded goose migrations for the worktracker store.
//
//go:embed *.sql
var FS embed.FS
