package orgs

import "errors"

// Sentinel errors for the orgs module.
var (
	ErrOrgNotFound  = errors.New("organization not found")
	ErrSlugExists   = errors.New("organization slug already exists")
	ErrInvalidSlug  = errors.New("invalid organization slug")
	ErrNotMember    = errors.New("not a member of this organization")
	ErrMemberExists = errors.New("user is already a member")
	ErrUserNotFound = errors.New("user not found")
)
