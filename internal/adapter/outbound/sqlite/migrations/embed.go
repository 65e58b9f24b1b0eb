// Package migrations embeds the SQL migration files for the sqlite store.
package migrations

import "embed"

// FS holds the embedded .sql migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
