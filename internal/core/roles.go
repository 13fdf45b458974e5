package core

import "strings"

// importableRoles are the roles a CSV row may assign. A row asking for
// administrator gets subscriber.
var importableRoles = map[Role]bool{
	RoleSubscriber:  true,
	RoleContributor: true,
	RoleAuthor:      true,
	RoleEditor:      true,
}

// uploadRoles may upload files to the media library.
var uploadRoles = map[Role]bool{
	RoleAuthor:        true,
	RoleEditor:        true,
	RoleAdministrator: true,
}

// ValidRole returns the requested role when it is importable, otherwise
// subscriber. Matching is case-insensitive and ignores surrounding space.
func ValidRole(requested string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(requested)))
	if importableRoles[r] {
		return r
	}
	return RoleSubscriber
}

// CanUpload reports whether the role carries the upload capability.
func (r Role) CanUpload() bool {
	return uploadRoles[r]
}
