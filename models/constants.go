package models

// Roles, lowest to highest.
const (
	RoleViewer     = "viewer"
	RoleDispatcher = "dispatcher"
	RoleAdmin      = "admin"
)

// RoleHierarchy ranks roles; a higher number carries every lower permission.
var RoleHierarchy = map[string]int{
	RoleViewer:     1,
	RoleDispatcher: 2,
	RoleAdmin:      3,
}

// IsRoleAtLeast reports whether role meets required. Unknown roles only match themselves.
func IsRoleAtLeast(role, required string) bool {
	have, ok1 := RoleHierarchy[role]
	need, ok2 := RoleHierarchy[required]
	if !ok1 || !ok2 {
		return role == required
	}
	return have >= need
}
