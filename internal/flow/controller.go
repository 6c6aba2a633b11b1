// Package flow drives a login form submission: pre-check, authentication and the
// role-based landing decision.
package flow

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/signin-dev/signin/internal/session"
	"github.com/signin-dev/signin/internal/validation"
)

const (
	MessageLoginSuccess = "Login Successful!"
	MessageLoginFailed  = "Login failed. Please check your credentials and try again."

	DefaultPrivilegedRoute = "/super-admin"
	DefaultStandardRoute   = "/home"
)

// Kind distinguishes success notifications from error notifications
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notifier displays a message to the user
type Notifier interface {
	Notify(message string, kind Kind)
}

// Navigator moves the user to another route
type Navigator interface {
	Navigate(path string)
}

// Validator is the pre-check step
type Validator interface {
	Validate(ctx context.Context, identifier string) validation.Result
}

// SessionStore is the part of the session store the flow needs
type SessionStore interface {
	Login(ctx context.Context, identifier, secret string) bool
	Session() session.Session
}

// Credentials are typed by the user and handed to Submit by value
type Credentials struct {
	Identifier string
	Secret     string
}

// Routes holds the landing destinations after a successful login
type Routes struct {
	Privileged string `json:"privileged"`
	Standard   string `json:"standard"`
}

// DefaultRoutes returns the stock landing routes
func DefaultRoutes() Routes {
	return Routes{Privileged: DefaultPrivilegedRoute, Standard: DefaultStandardRoute}
}

// For returns the landing route for a role
func (r Routes) For(role session.Role) (string, error) {
	switch role {
	case session.RoleSuperAdmin:
		return r.Privileged, nil
	case session.RoleStandard, session.RoleAdmin:
		return r.Standard, nil
	default:
		return "", fmt.Errorf("no landing route for role %q: %w", role, session.ErrUnknownRole)
	}
}

// Outcome reports how a submission ended
type Outcome int

const (
	// OutcomeIgnored means another submission was still in flight
	OutcomeIgnored Outcome = iota
	// OutcomeRejected means the pre-check refused the identifier
	OutcomeRejected
	// OutcomeFailed means authentication did not succeed
	OutcomeFailed
	// OutcomeSucceeded means the user is signed in and was navigated
	OutcomeSucceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Controller orchestrates a login submission
type Controller struct {
	gate      Validator
	store     SessionStore
	notifier  Notifier
	navigator Navigator
	routes    Routes
	logger    zerolog.Logger

	inFlight atomic.Bool
}

// Option configures a Controller
type Option func(*Controller)

func WithRoutes(routes Routes) Option {
	return func(c *Controller) {
		c.routes = routes
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController wires a controller to its collaborators
func NewController(gate Validator, store SessionStore, notifier Notifier, navigator Navigator, opts ...Option) *Controller {
	c := &Controller{
		gate:      gate,
		store:     store,
		notifier:  notifier,
		navigator: navigator,
		routes:    DefaultRoutes(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a submission is being processed
func (c *Controller) Busy() bool {
	return c.inFlight.Load() || c.store.Session().IsLoading
}

// Submit runs one submission to completion. A submission made while another one is
// still in flight is ignored: no backend call, notification or navigation happens.
func (c *Controller) Submit(ctx context.Context, creds Credentials) Outcome {
	if c.store.Session().IsLoading || !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug().Str("email", creds.Identifier).Msg("Submission ignored while another is in flight")
		return OutcomeIgnored
	}
	defer c.inFlight.Store(false)

	res := c.gate.Validate(ctx, creds.Identifier)
	if !res.Success {
		c.logger.Info().Str("email", creds.Identifier).Str("reason", res.Error).Msg("Pre-check rejected identifier")
		c.notifier.Notify(res.Error, KindError)
		return OutcomeRejected
	}

	if !c.store.Login(ctx, creds.Identifier, creds.Secret) {
		c.notifier.Notify(MessageLoginFailed, KindError)
		return OutcomeFailed
	}

	user := c.store.Session().User
	if user == nil {
		// logged out between resolution and this read
		c.notifier.Notify(MessageLoginFailed, KindError)
		return OutcomeFailed
	}

	route, err := c.routes.For(user.Role)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to resolve landing route")
		c.notifier.Notify(MessageLoginFailed, KindError)
		return OutcomeFailed
	}

	c.notifier.Notify(MessageLoginSuccess, KindSuccess)
	c.navigator.Navigate(route)
	c.logger.Info().Str("user_id", user.ID).Str("route", route).Msg("Login flow complete")
	return OutcomeSucceeded
}

// Submission is a login submission running in the background
type Submission struct {
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// Start runs Submit in its own goroutine. Cancelling the submission (or ctx) while
// authentication is in flight resolves it as a failed login.
func (c *Controller) Start(ctx context.Context, creds Credentials) *Submission {
	ctx, cancel := context.WithCancel(ctx)
	s := &Submission{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer cancel()
		s.outcome = c.Submit(ctx, creds)
	}()

	return s
}

// Cancel aborts the submission
func (s *Submission) Cancel() {
	s.cancel()
}

// Done is closed once the submission has resolved
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission resolves and returns its outcome
func (s *Submission) Wait() Outcome {
	<-s.done
	return s.outcome
}
