package models

import (
	"encoding/json"
	"strings"
)

// Role identifies what a user can do in the storefront. The server reports
// roles as strings; decoding maps them onto this closed set so call sites can
// switch exhaustively instead of comparing raw strings.
type Role int

const (
	RoleUnknown Role = iota
	RoleBuyer
	RoleArtist
)

// ParseRole maps a server role name onto a Role. Unrecognized names map to
// RoleUnknown rather than failing, so a new server-side role cannot break
// profile decoding.
func ParseRole(name string) Role {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BUYER":
		return RoleBuyer
	case "ARTIST":
		return RoleArtist
	default:
		return RoleUnknown
	}
}

// String returns the server-side name for the role.
func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "BUYER"
	case RoleArtist:
		return "ARTIST"
	default:
		return "UNKNOWN"
	}
}

// UnmarshalJSON decodes a role name string into a Role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*r = ParseRole(name)
	return nil
}

// MarshalJSON encodes the role as its server-side name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UserProfile represents the authenticated user as reported by
// GET /api/users/me.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"roleName"`
}

// RegisterRequest is the payload for POST /api/users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"roleName"`
}
