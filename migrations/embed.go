// Package migrations embeds the SQL schema migrations served to the
// migrate binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
