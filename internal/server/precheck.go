package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/signin-dev/signin/internal/models"
)

// Pre-check rejection messages, shown verbatim by the client
const (
	ReasonInvalidEmail = "Please enter a valid email address"
	ReasonRateLimited  = "Too many login attempts. Please try again later."
	ReasonBanned       = "This account has been suspended"
	ReasonLocked       = "Account temporarily locked. Please try again later."
)

// maxTrackedIdentifiers bounds the limiter map; it is reset when exceeded
const maxTrackedIdentifiers = 10000

// PrecheckPolicy decides whether an identifier may proceed to authentication
type PrecheckPolicy struct {
	db        *gorm.DB
	validate  *validator.Validate
	perMinute int
	now       func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPrecheckPolicy creates a policy allowing perMinute pre-checks per identifier (<= 0 disables limiting)
func NewPrecheckPolicy(db *gorm.DB, perMinute int) *PrecheckPolicy {
	return &PrecheckPolicy{
		db:        db,
		validate:  validator.New(),
		perMinute: perMinute,
		now:       time.Now,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Check returns an empty reason when the identifier is acceptable.
// Unknown accounts pass so the pre-check does not reveal which emails are registered.
func (p *PrecheckPolicy) Check(email string) (string, error) {
	email = models.NormalizeEmail(email)
	if err := p.validate.Var(email, "required,email"); err != nil {
		return ReasonInvalidEmail, nil
	}

	if !p.allow(email) {
		return ReasonRateLimited, nil
	}

	user, err := models.FindUserByEmail(p.db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	switch {
	case user.Status == models.StatusBanned:
		return ReasonBanned, nil
	case user.IsLocked(p.now()):
		return ReasonLocked, nil
	}
	return "", nil
}

func (p *PrecheckPolicy) allow(email string) bool {
	if p.perMinute <= 0 {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[email]
	if !ok {
		if len(p.limiters) >= maxTrackedIdentifiers {
			p.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.perMinute)), p.perMinute)
		p.limiters[email] = limiter
	}
	return limiter.AllowN(p.now(), 1)
}
