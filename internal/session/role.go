package session

import (
	"errors"
	"fmt"
)

// Role is the closed set of account roles the identity backend may assign
type Role string

const (
	RoleStandard   Role = "STANDARD"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a wire value into a Role, rejecting anything outside the known set
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStandard, RoleAdmin, RoleSuperAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// IsPrivileged reports whether the role lands on the privileged route
func (r Role) IsPrivileged() bool {
	return r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalText lets encoding/json reject unknown roles while decoding
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r), nil
}
