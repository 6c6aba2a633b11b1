package client

import (
	"context"
	"sync"

	"github.com/signin-dev/signin/internal/session"
	"github.com/signin-dev/signin/internal/validation"
)

// Prechecker exposes Client.Precheck as a validation.Prechecker
type Prechecker struct {
	Client *Client
}

func (p Prechecker) Precheck(ctx context.Context, identifier string) (validation.Result, error) {
	resp, err := p.Client.Precheck(ctx, identifier)
	if err != nil {
		return validation.Result{}, err
	}
	if resp.Success {
		return validation.Passed(), nil
	}
	return validation.Rejected(resp.Error), nil
}

// Authenticator exposes Client.Login as a session.Authenticator and keeps the last issued token
type Authenticator struct {
	Client *Client

	mu    sync.Mutex
	token string
}

func (a *Authenticator) Authenticate(ctx context.Context, identifier, secret string) (*session.User, error) {
	resp, err := a.Client.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.token = resp.Token
	a.mu.Unlock()

	user := resp.User
	return &user, nil
}

// Token returns the token from the most recent successful login
func (a *Authenticator) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}
