package workflow

import "strings"

// Role identifies the actor requesting a transition
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleHR       Role = "HR"
	RoleFinance  Role = "FINANCE"
	// RoleSystem is the configured auto-approval policy actor.
	RoleSystem Role = "SYSTEM"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleHR:       true,
	RoleFinance:  true,
	RoleSystem:   true,
}

// AllRoles returns every valid role in fixed order.
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleManager, RoleHR, RoleFinance, RoleSystem}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a known actor role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// ParseRole normalizes a role string from an external caller.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}
