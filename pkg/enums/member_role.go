package enums

import "fmt"

// MemberRole is the role carried in access-token claims.
type MemberRole string

const (
	MemberRoleAdmin MemberRole = "admin"
	MemberRoleAgent MemberRole = "agent"
)

var validMemberRoles = []MemberRole{MemberRoleAdmin, MemberRoleAgent}

// IsValid reports whether the value is a known role.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
