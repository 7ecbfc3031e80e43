// Package api implements the HTTP command API and WebSocket event hub of the
// notice daemon.
//
// This package provides:
//   - REST endpoints mirroring the app.Service commands (config, connect,
//     disconnect, connection state, message history)
//   - a WebSocket hub that implements notice.Emitter, so connection-state
//     and message events reach any connected UI
//   - optional bearer-token authentication (HS256 JWT) with viewer and
//     operator roles
//   - the usual middleware stack (request ID, logging, recovery, CORS,
//     body size limit)
//
// # Security
//
// When security.api_secret is empty the API is open; it binds to loopback
// by default. With a secret every route except /health needs a token in the
// Authorization header. Browsers cannot set headers on a WebSocket upgrade,
// so /ws takes the token as a ?token= query parameter instead.
package api
