package rbac

import (
	"fmt"
	"strings"
	"time"
)

// UserContext is an immutable snapshot of a resolved user's permissions. It is
// valid for the state at ResolvedAt and is never re-validated.
type UserContext struct {
	userID      string
	role        string
	clientID    *string
	permissions Permissions
	resolvedAt  time.Time
}

func newUserContext(userID, role string, clientID *string, perms Permissions, at time.Time) *UserContext {
	uc := &UserContext{
		userID:      userID,
		role:        role,
		permissions: perms.Clone(),
		resolvedAt:  at,
	}
	if clientID != nil {
		id := *clientID
		uc.clientID = &id
	}
	return uc
}

// UserID returns the resolved user's ID
func (c *UserContext) UserID() string { return c.userID }

// Role returns the user's role at resolution time
func (c *UserContext) Role() string { return c.role }

// ClientID returns the optional client scope
func (c *UserContext) ClientID() (string, bool) {
	if c.clientID == nil {
		return "", false
	}
	return *c.clientID, true
}

// ResolvedAt returns when the snapshot was taken
func (c *UserContext) ResolvedAt() time.Time { return c.resolvedAt }

// HasPermission reports whether key is granted. Unknown keys are denied.
func (c *UserContext) HasPermission(key string) bool {
	return c.permissions[key]
}

// Permissions returns a copy of the snapshot, including denied keys
func (c *UserContext) Permissions() Permissions {
	return c.permissions.Clone()
}

// Granted returns the granted keys, sorted
func (c *UserContext) Granted() []string {
	return c.permissions.Granted()
}

func (c *UserContext) String() string {
	client := "none"
	if c.clientID != nil {
		client = *c.clientID
	}
	return fmt.Sprintf("UserContext{user=%s role=%s client=%s granted=[%s]}",
		c.userID, c.role, client, strings.Join(c.Granted(), " "))
}
