// Package migrations embeds the schema migration files so the migration
// binary carries its own SQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
