// Package migrations embeds the storefront schema.
package migrations

import "embed"

// FS holds the .up.sql files applied in name order at startup.
//
//go:embed *.up.sql
var FS embed.FS
