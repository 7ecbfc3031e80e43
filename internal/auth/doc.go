// Package auth provides bearer-token authentication for the notice command API.
//
// There are no user accounts: the daemon signs HS256 JWTs with the
// configured API secret ("noticed token" mints them) and the API verifies
// them by signature alone. Each token carries a role:
//   - viewer: read connection state, configuration and history, watch events
//   - operator: everything a viewer can do plus connect, disconnect and edit
//
// The role to permission mapping is static.
package auth
