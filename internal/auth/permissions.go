package auth

// Permission represents a named capability in the command API.
type Permission string

// Permission constants.
const (
	PermStateRead        Permission = "state:read"
	PermConfigRead       Permission = "config:read"
	PermConfigWrite      Permission = "config:write"
	PermConnectionManage Permission = "connection:manage"
	PermMessagesRead     Permission = "messages:read"
	PermMessagesWrite    Permission = "messages:write"
	PermEventsWatch      Permission = "events:watch"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStateRead,
		PermConfigRead,
		PermMessagesRead,
		PermEventsWatch,
	},
	RoleOperator: {
		PermStateRead,
		PermConfigRead,
		PermConfigWrite,
		PermConnectionManage,
		PermMessagesRead,
		PermMessagesWrite,
		PermEventsWatch,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
