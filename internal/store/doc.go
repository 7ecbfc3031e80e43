// Package store persists the client record and the message history.
//
// Files live in the application data directory:
//   - config.json: the ClientConfig edited by the user (pretty JSON)
//   - messages.json: the message history, newest first (json backend)
//   - messages.db: the message history in SQLite (sqlite backend)
//
// Reads never fail: a missing or unreadable file yields the default record
// or an empty history and a warning is logged. Writes return errors
// wrapping ErrPersistence.
package store
