package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles carried by a session token.
type Role string

const (
	RoleAuthor Role = "AUTHOR"
	RoleEditor Role = "EDITOR"
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleAuthor, RoleEditor}

// roleAliases maps the wire spellings issued by the upstream API to roles.
var roleAliases = map[string]Role{
	"AUTHOR":    RoleAuthor,
	"REDACTEUR": RoleAuthor,
	"EDITOR":    RoleEditor,
	"EDITEUR":   RoleEditor,
}

// ParseRole accepts canonical names and the upstream aliases, case-insensitively.
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAuthor, RoleEditor:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
