// Package migrations embeds the PostgreSQL schema for the sync run ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
