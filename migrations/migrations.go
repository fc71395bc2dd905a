// Package migrations embeds the order journal schema so the binary does not
// depend on its working directory.
package migrations

import "embed"

// FS holds the golang-migrate up/down files.
//
//go:embed *.sql
var FS embed.FS
