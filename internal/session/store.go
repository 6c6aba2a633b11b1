package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLoginTimeout bounds a single authentication round trip
const DefaultLoginTimeout = 30 * time.Second

var ErrLoginInFlight = errors.New("login already in progress")

// Authenticator is the identity backend's authentication capability.
// Implementations return an error for rejected credentials as well as transport failures.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*User, error)
}

// Listener receives every session change in the order the changes were made.
// Listeners may call Session or any unsubscribe function but not Login or Logout.
// A panicking listener is logged and skipped.
type Listener func(Session)

// Store owns the process-wide authentication state.
// Create one with NewStore at startup and hand it to every consumer.
type Store struct {
	auth    Authenticator
	logger  zerolog.Logger
	timeout time.Duration

	mu    sync.Mutex
	state Session
	// generation increments on every logout so a login resolving afterwards is discarded
	generation uint64

	// emitMu orders deliveries; listenMu guards the listener set so a listener may unsubscribe
	emitMu    sync.Mutex
	listenMu  sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// Option configures a Store
type Option func(*Store)

// WithTimeout sets the per-attempt authentication timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithLogger sets the store logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store in the signed-out state
func NewStore(auth Authenticator, opts ...Option) *Store {
	s := &Store{
		auth:      auth,
		logger:    zerolog.Nop(),
		timeout:   DefaultLoginTimeout,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns a snapshot of the current state
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.copy()
}

// Subscribe registers a listener and returns a function that removes it
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenMu.Lock()
			delete(s.listeners, id)
			s.listenMu.Unlock()
		})
	}
}

// Login authenticates against the identity backend and reports whether it succeeded.
// A call made while another login is in flight is rejected without contacting the backend.
func (s *Store) Login(ctx context.Context, identifier, secret string) bool {
	s.mu.Lock()
	if s.state.IsLoading {
		s.mu.Unlock()
		s.logger.Debug().Str("email", identifier).Err(ErrLoginInFlight).Msg("Login rejected")
		return false
	}
	gen := s.generation
	s.state.IsLoading = true
	s.commit()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user, err := s.authenticate(ctx, identifier, secret)

	s.mu.Lock()
	if s.generation != gen {
		// logged out while waiting on the backend
		s.mu.Unlock()
		s.logger.Info().Str("email", identifier).Msg("Login discarded after logout")
		return false
	}
	s.state.IsLoading = false
	if err != nil {
		s.state.User = nil
		s.commit()
		s.logger.Warn().Err(err).Str("email", identifier).Msg("Login failed")
		return false
	}
	s.state.User = user
	s.commit()

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("User logged in")
	return true
}

// Logout resets the store to the signed-out state. Calling it repeatedly is harmless.
func (s *Store) Logout() {
	s.mu.Lock()
	s.generation++
	s.state = Session{}
	s.commit()
}

// authenticate converts panics, nil identities and unroutable roles into errors so Login always resolves
func (s *Store) authenticate(ctx context.Context, identifier, secret string) (user *User, err error) {
	defer func() {
		if r := recover(); r != nil {
			user, err = nil, errors.New("authenticator panicked")
		}
	}()

	u, err := s.auth.Authenticate(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("authenticator returned no user")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return nil, err
	}
	copied := *u
	return &copied, nil
}

// commit publishes the current state to listeners. It must be called with mu held and
// releases it; emitMu is taken first so listeners see changes in mutation order.
func (s *Store) commit() {
	snapshot := s.state.copy()
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	s.listenMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.listenMu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		s.listenMu.Lock()
		l, ok := s.listeners[id]
		s.listenMu.Unlock()
		if !ok {
			// removed by an earlier listener in this delivery
			continue
		}
		s.notify(l, snapshot)
	}
}

func (s *Store) notify(l Listener, snapshot Session) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Session listener panicked")
		}
	}()
	l(snapshot)
}
