package classifier

import (
	"strings"
)

// Role-based local part prefixes
var defaultRolePrefixes = []string{
	"admin",
	"support",
	"info",
	"sales",
	"contact",
	"team",
}

// IsRoleAccount checks if the local part starts with a role prefix.
// No separator is required after the prefix, so "admin2" and
// "administrator" both count.
func (l *Lists) IsRoleAccount(localPart string) bool {
	localPart = strings.ToLower(localPart)
	for _, prefix := range l.rolePrefixes {
		if strings.HasPrefix(localPart, prefix) {
			return true
		}
	}
	return false
}

// RolePrefixCount returns the number of role prefixes
func (l *Lists) RolePrefixCount() int {
	return len(l.rolePrefixes)
}
