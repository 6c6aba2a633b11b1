package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/signin-dev/signin/internal/cli/config"
)

func TestSignupAndWhoami(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/register":
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req["email"] == "taken@example.com" {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"Email already registered"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"user": map[string]string{"id": "1", "email": req["email"], "name": req["name"], "role": "STANDARD"},
			})
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid or expired token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"1","email":"new@example.com","name":"New","role":"STANDARD"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	setupTestEnvironment(t, config.Config{Servers: []config.Server{{URL: api.URL, Alias: "local"}}})

	t.Run("signup", func(t *testing.T) {
		cmd := NewSignupCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetContext(context.Background())

		err := runSignup(cmd, signupOptions{email: "new@example.com", password: "password1", name: "New"}, false)
		if err != nil {
			t.Fatalf("signup failed: %v", err)
		}
		if !strings.Contains(out.String(), "Account created") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("signup conflict", func(t *testing.T) {
		cmd := NewSignupCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetContext(context.Background())

		err := runSignup(cmd, signupOptions{email: "taken@example.com", password: "password1", name: "Dup"}, false)
		if err == nil || !strings.Contains(err.Error(), "Email already registered") {
			t.Errorf("expected conflict error, got %v", err)
		}
	})

	t.Run("signup missing fields", func(t *testing.T) {
		t.Setenv(envEmail, "")
		t.Setenv(envPassword, "")
		cmd := NewSignupCmd()
		cmd.SetContext(context.Background())

		if err := runSignup(cmd, signupOptions{email: "x@example.com"}, false); err == nil {
			t.Error("expected error in non-interactive mode")
		}
	})

	t.Run("whoami", func(t *testing.T) {
		cmd := NewWhoamiCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--token", "tok"})

		if err := cmd.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("whoami failed: %v", err)
		}
		if !strings.Contains(out.String(), "Role: STANDARD") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("whoami bad token", func(t *testing.T) {
		cmd := NewWhoamiCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--token", "nope"})

		if err := cmd.ExecuteContext(context.Background()); err == nil {
			t.Error("expected error for rejected token")
		}
	})
}

func TestSelectServer(t *testing.T) {
	setupTestEnvironment(t, config.Config{Servers: []config.Server{
		{URL: "http://localhost:8080", Alias: "local"},
		{URL: "https://id.example.com", Alias: "staging"},
	}})

	cmd := NewSelectServerCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"staging"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("select-server failed: %v", err)
	}
	if !strings.Contains(out.String(), "Selected server: staging (https://id.example.com)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	_, server, err := getSelectedServer("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Alias != "staging" {
		t.Errorf("expected saved selection to be used, got %s", server.Alias)
	}
}

func TestSelectServer_ProjectsKeepOwnSelection(t *testing.T) {
	servers := config.Config{Servers: []config.Server{
		{URL: "http://localhost:8080", Alias: "local"},
		{URL: "https://id.example.com", Alias: "staging"},
	}}
	first := setupTestEnvironment(t, servers)
	home := os.Getenv("HOME")
	second := setupTestEnvironment(t, servers)
	t.Setenv("HOME", home)

	t.Chdir(first)
	if err := runSelectServer(NewSelectServerCmd(), "staging"); err != nil {
		t.Fatalf("select-server failed: %v", err)
	}
	t.Chdir(second)
	if err := runSelectServer(NewSelectServerCmd(), "local"); err != nil {
		t.Fatalf("select-server failed: %v", err)
	}

	t.Chdir(first)
	_, server, err := getSelectedServer("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Alias != "staging" {
		t.Errorf("expected first project to keep staging, got %s", server.Alias)
	}
}
