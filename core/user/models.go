package user

import (
	"strings"
	"time"
)

// Role is the closed set of user roles known to the app.
type Role string

const (
	RoleTeacher   Role = "teacher"
	RoleParent    Role = "parent"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

type capabilities struct {
	moderate          bool // may approve/reject chat messages, exempt from moderation
	audienceUniversal bool // appended to every class/student audience
}

var (
	AllRoles        = []Role{RoleTeacher, RoleParent, RolePrincipal, RoleAdmin}
	PrivilegedRoles = []Role{RolePrincipal, RoleAdmin}

	capabilityTable = map[Role]capabilities{
		RoleAdmin:     {moderate: true, audienceUniversal: true},
		RolePrincipal: {moderate: true, audienceUniversal: true},
		RoleTeacher:   {},
		RoleParent:    {},
	}
)

// ParseRole maps a raw role name to a Role; unknown names are rejected.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := capabilityTable[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := capabilityTable[r]
	return ok
}

// CanModerate reports whether r may approve or reject messages.
func (r Role) CanModerate() bool { return capabilityTable[r].moderate }

// IsAudienceUniversal reports whether r sees every class/student notification.
func (r Role) IsAudienceUniversal() bool { return capabilityTable[r].audienceUniversal }

// IsPrivileged reports whether r is exempt from chat moderation.
func (r Role) IsPrivileged() bool { return r.CanModerate() }

func (r Role) String() string { return string(r) }

type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Actor identifies the user performing an operation, as asserted by the auth layer.
type Actor struct {
	ID   string
	Role Role
}

func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
