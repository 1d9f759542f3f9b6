package rbac

import "sort"

// Default document names, relative to the backend root
const (
	DefaultPermissionsDocument = "config/RolePermissions.yaml"
	DefaultUsersDocument       = "config/UserRegistry.yaml"
)

// AdminPermission gates the administrative mutation path
const AdminPermission = "admin.manage_users"

// Permissions maps a permission key to whether it is granted. Absent keys are
// denied.
type Permissions map[string]bool

// Clone returns an independent copy; a nil map clones to an empty one
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Granted returns the keys set to true, sorted
func (p Permissions) Granted() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Keys returns every key, granted or denied, sorted
func (p Permissions) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matrix maps a role name to its permissions. The role set is the key set.
type Matrix map[string]Permissions

// Clone returns a deep copy
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for role, perms := range m {
		out[role] = perms.Clone()
	}
	return out
}

// Roles returns the role names, sorted
func (m Matrix) Roles() []string {
	roles := make([]string, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// AllPermissionKeys returns the union of keys across all roles, sorted
func (m Matrix) AllPermissionKeys() []string {
	seen := make(map[string]struct{})
	for _, perms := range m {
		for k := range perms {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// User is one registry entry
type User struct {
	Role     string  `yaml:"role" validate:"required"`
	ClientID *string `yaml:"client_id,omitempty"`
	Active   bool    `yaml:"active"`
}

// Clone returns a copy that does not share the client ID
func (u User) Clone() User {
	if u.ClientID != nil {
		id := *u.ClientID
		u.ClientID = &id
	}
	return u
}

// Registry maps user ID to user record
type Registry map[string]User

// Clone returns a deep copy
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for id, u := range r {
		out[id] = u.Clone()
	}
	return out
}

// IDs returns the user IDs, sorted
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StringPtr is a helper for optional client IDs
func StringPtr(s string) *string { return &s }
