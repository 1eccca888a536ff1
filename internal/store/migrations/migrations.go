// Package migrations embeds the console cache schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
