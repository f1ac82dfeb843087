// Package migrations embeds the SQL schema for the local index mirror.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
