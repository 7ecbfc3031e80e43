package auth

import "errors"

// Role represents an authorisation tier carried in a token.
type Role string

const (
	// RoleViewer can observe but not change anything.
	RoleViewer Role = "viewer"

	// RoleOperator can additionally drive the connection and edit settings.
	RoleOperator Role = "operator"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Domain errors.
var (
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrForbidden     = errors.New("insufficient permissions")
	ErrMissingSecret = errors.New("signing secret is required")
	ErrInvalidRole   = errors.New("invalid role")
)
