package domain

import "strings"

// Role identifies what kind of account a user holds. The platform issues
// roles this engine does not know about (chef, manager, ...); only RoleAdmin
// changes what a user may access.
type Role string

// Roles with a name in this package.
const (
	RoleAdmin     Role = "admin"
	RoleApplicant Role = "applicant"
)

// ParseRole converts a role name into a Role. Any non-blank name is
// accepted; surrounding whitespace is trimmed.
// Returns ErrInvalidRole for a blank name.
func ParseRole(s string) (Role, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", ErrInvalidRole
	}
	return Role(name), nil
}

// IsAdmin reports whether the role bypasses the access gate.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// AccessLevel is the derived authorization tier controlling which videos a
// user may progress. It is computed per request and never persisted.
type AccessLevel string

// Possible access levels.
const (
	AccessFull    AccessLevel = "full"
	AccessLimited AccessLevel = "limited"
)

// ResolveAccessLevel computes the access level of a user.
// Admins get full access regardless of anything else. Any other role gets
// full access once the user has an approved application or a confirmed
// completion, and is limited until then.
func ResolveAccessLevel(role Role, hasApprovedApplication, completionConfirmed bool) AccessLevel {
	if role.IsAdmin() || hasApprovedApplication || completionConfirmed {
		return AccessFull
	}
	return AccessLimited
}

// CanAccessVideo reports whether a user with the given access level may
// access videoID. Limited users may only access the free video.
func CanAccessVideo(videoID string, level AccessLevel, firstFreeVideoID string) bool {
	if level == AccessFull {
		return true
	}
	return firstFreeVideoID != "" && videoID == firstFreeVideoID
}
