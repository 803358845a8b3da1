// Package migrations holds the versioned SQL schema, embedded so the migrate
// command works without the source tree.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
