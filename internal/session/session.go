package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// User is the identity returned by the identity backend after a successful login
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// UnmarshalJSON accepts the id as either a JSON string or a JSON integer
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	*u = User(raw.plain)
	u.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("user id must be a string or integer: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("user id must be a string or integer: %s", raw)
	}
	return n.String(), nil
}

// Session is a point-in-time view of the authentication state
type Session struct {
	User      *User
	IsLoading bool
}

// IsAuthenticated reports whether a user is currently signed in
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

// copy returns a snapshot that does not alias the store's user
func (s Session) copy() Session {
	if s.User == nil {
		return s
	}
	u := *s.User
	return Session{User: &u, IsLoading: s.IsLoading}
}
