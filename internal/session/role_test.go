package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "STANDARD", want: RoleStandard},
		{in: "ADMIN", want: RoleAdmin},
		{in: "SUPER_ADMIN", want: RoleSuperAdmin},
		{in: "super_admin", wantErr: true},
		{in: "", wantErr: true},
		{in: "ROOT", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownRole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_IsPrivileged(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsPrivileged())
	assert.False(t, RoleAdmin.IsPrivileged())
	assert.False(t, RoleStandard.IsPrivileged())
}

func TestUser_DecodeRejectsUnknownRole(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{"id":"1","role":"OWNER"}`), &u)
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","role":"SUPER_ADMIN"}`), &u))
	assert.Equal(t, RoleSuperAdmin, u.Role)
}

func TestUser_DecodeID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"string", `{"id":"abc","role":"STANDARD"}`, "abc", false},
		{"integer", `{"id":1,"role":"STANDARD"}`, "1", false},
		{"large integer", `{"id":9007199254740993,"role":"STANDARD"}`, "9007199254740993", false},
		{"missing", `{"role":"STANDARD"}`, "", false},
		{"null", `{"id":null,"role":"STANDARD"}`, "", false},
		{"fraction", `{"id":1.5,"role":"STANDARD"}`, "", true},
		{"bool", `{"id":true,"role":"STANDARD"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u User
			err := json.Unmarshal([]byte(tt.body), &u)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.ID)
			assert.Equal(t, RoleStandard, u.Role)
		})
	}
}

func TestUser_DecodeKeepsOtherFields(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"email":"a@b.com","name":"A","role":"ADMIN"}`), &u))
	assert.Equal(t, User{ID: "7", Email: "a@b.com", Name: "A", Role: RoleAdmin}, u)

	assert.Error(t, json.Unmarshal([]byte(`{"id":7,"role":"OWNER"}`), &u))
}
