package auth

import "fmt"

// Role identifies a caller's position in the school role hierarchy
type Role string

const (
	RoleStudent     Role = "Student"
	RoleParent      Role = "Parent"
	RoleTeacher     Role = "Teacher"
	RoleSchoolAdmin Role = "SchoolAdmin"
	RoleSystemAdmin Role = "SystemAdmin"
)

// roleRanks is the total order over roles. Rank is used only for
// "at least as privileged as" comparisons; it never implies resource
// visibility by itself.
var roleRanks = map[Role]int{
	RoleStudent:     1,
	RoleParent:      2,
	RoleTeacher:     3,
	RoleSchoolAdmin: 4,
	RoleSystemAdmin: 5,
}

// ParseRole converts a role string to a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Valid reports whether the role is one of the five known roles
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the role's ordinal rank, 0 for unknown roles
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r is at least as privileged as other
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && r.Valid()
}

// IsAdmin reports whether the role carries administrative privileges
func (r Role) IsAdmin() bool {
	return r == RoleSchoolAdmin || r == RoleSystemAdmin
}

func (r Role) String() string {
	return string(r)
}
