// Package migrations embeds the partition store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
