// Package database provides SQLite storage for the notice message history.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying embedded schema migrations in version order
//   - Health checks for the status endpoint
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_description.up.sql
// with an optional matching .down.sql. They are passed to Migrate as an
// fs.FS, normally the embed.FS exported by the top-level migrations package.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "messages.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
