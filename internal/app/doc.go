// Package app is the command surface of the notice daemon.
//
// Service is what every front end (HTTP API, CLI) calls into: it reads and
// persists the client record, applies it to the connection manager and
// exposes the connection state and message history. It holds no state of
// its own beyond references to the stores and the manager.
package app
