// Package validation implements the secret-free pre-check that runs before credentials
// are sent to the identity backend.
package validation

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// MessageUnavailable is shown when the pre-check itself could not be performed
	MessageUnavailable = "Unable to verify your account right now. Please try again."
	// MessageRequired is shown for an empty identifier
	MessageRequired = "Email is required"
	// MessageInvalidEmail is shown when local email-shape checking is enabled and fails
	MessageInvalidEmail = "Please enter a valid email address"

	DefaultTimeout = 10 * time.Second
)

// Result is the outcome of a single pre-check
type Result struct {
	Success bool
	Error   string
}

// Passed is the result of an accepted identifier
func Passed() Result {
	return Result{Success: true}
}

// Rejected builds a failed result carrying a user-facing reason
func Rejected(reason string) Result {
	return Result{Success: false, Error: reason}
}

// Prechecker is the identity backend's pre-validation capability
type Prechecker interface {
	Precheck(ctx context.Context, identifier string) (Result, error)
}

// Gate classifies identifiers as acceptable before any secret leaves the client
type Gate struct {
	remote      Prechecker
	validate    *validator.Validate
	checkFormat bool
	timeout     time.Duration
	logger      zerolog.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithEmailFormat enables a local email-shape check ahead of the remote call
func WithEmailFormat() Option {
	return func(g *Gate) {
		g.checkFormat = true
	}
}

// WithTimeout bounds the remote pre-check. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a gate backed by the given remote pre-check
func NewGate(remote Prechecker, opts ...Option) *Gate {
	g := &Gate{
		remote:   remote,
		validate: validator.New(),
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate never returns an error: every failure, including transport failures, is
// reported as an unsuccessful Result with a message suitable for display.
func (g *Gate) Validate(ctx context.Context, identifier string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Msg("Pre-check panicked")
			res = Rejected(MessageUnavailable)
		}
	}()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Rejected(MessageRequired)
	}
	if g.checkFormat {
		if err := g.validate.Var(identifier, "email"); err != nil {
			return Rejected(MessageInvalidEmail)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	res, err := g.remote.Precheck(ctx, identifier)
	if err != nil {
		g.logger.Warn().Err(err).Str("email", identifier).Msg("Pre-check failed")
		return Rejected(MessageUnavailable)
	}
	if !res.Success && res.Error == "" {
		res.Error = MessageUnavailable
	}
	if res.Success {
		res.Error = ""
	}

	g.logger.Debug().Str("email", identifier).Bool("success", res.Success).Msg("Pre-check resolved")
	return res
}
