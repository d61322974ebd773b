package migrations

import "embed"

// FS contains the Postgres schema migrations in golang-migrate layout.
//
//go:embed *.sql
var FS embed.FS
