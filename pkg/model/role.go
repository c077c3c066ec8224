package model

// Role is a global, account-level role. Room-level privilege (owner, host)
// is tracked on the Room itself and is independent of these.
type Role string

const (
	RoleUser  Role = "user"  // default role
	RoleHost  Role = "host"  // may be granted hosting rights in any room
	RoleAdmin Role = "admin" // moderates any room, immune to non-admin moderation
	RoleOwner Role = "owner" // server operator, superset of admin
)

// ParseRole converts a string to a Role. Unrecognized values map to RoleUser.
func ParseRole(s string) Role {
	switch s {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	case "host":
		return RoleHost
	default:
		return RoleUser
	}
}

// Valid returns true if the role is one of the recognised values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHost, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// RoleSet is an ordered set of global roles.
type RoleSet []Role

// Has reports whether the set contains r.
func (rs RoleSet) Has(r Role) bool {
	for _, have := range rs {
		if have == r {
			return true
		}
	}
	return false
}

// Admin reports whether the set carries server-wide moderation authority
// (admin or owner).
func (rs RoleSet) Admin() bool {
	return rs.Has(RoleAdmin) || rs.Has(RoleOwner)
}

// Strings returns the roles as plain strings for serialization.
func (rs RoleSet) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// ParseRoleSet converts string role names to a RoleSet, dropping duplicates.
func ParseRoleSet(names []string) RoleSet {
	var rs RoleSet
	for _, n := range names {
		r := ParseRole(n)
		if !rs.Has(r) {
			rs = append(rs, r)
		}
	}
	return rs
}
