// Package migrations embeds the SQL schema for every supported database driver.
// Each driver has its own directory so that dialect differences stay explicit.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
