// Package migrations embeds the relay schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
