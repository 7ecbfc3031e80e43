// Package migrations embeds the SQLite schema for the message history.
//
// The files are compiled into the binary so the daemon can create or
// upgrade messages.db without any files on disk.
package migrations

import "embed"

// FS holds every migration at its root.
//
//go:embed *.sql
var FS embed.FS
