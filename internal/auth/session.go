package auth

import "github.com/signin-dev/signin/internal/session"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   session.Role `json:"role"`
}

// IsSuperAdmin reports whether the caller holds the privileged role
func (s *SessionData) IsSuperAdmin() bool {
	return s.Role.IsPrivileged()
}
