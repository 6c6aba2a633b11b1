package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/signin-dev/signin/internal/session"
	"github.com/signin-dev/signin/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubGate struct {
	mu     sync.Mutex
	result validation.Result
	calls  int
}

func (g *stubGate) Validate(_ context.Context, _ string) validation.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.result
}

func (g *stubGate) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubBackend struct {
	mu      sync.Mutex
	user    *session.User
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (b *stubBackend) Authenticate(ctx context.Context, _, _ string) (*session.User, error) {
	b.mu.Lock()
	b.calls++
	started, release := b.started, b.release
	b.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.user, b.err
}

func (b *stubBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type notification struct {
	Message string
	Kind    Kind
}

type recordingUI struct {
	mu            sync.Mutex
	notifications []notification
	navigations   []string
}

func (r *recordingUI) Notify(message string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification{Message: message, Kind: kind})
}

func (r *recordingUI) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, path)
}

func (r *recordingUI) snapshot() ([]notification, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.notifications...), append([]string(nil), r.navigations...)
}

func newHarness(gate *stubGate, backend *stubBackend) (*Controller, *session.Store, *recordingUI) {
	store := session.NewStore(backend)
	ui := &recordingUI{}
	return NewController(gate, store, ui, ui), store, ui
}

func TestSubmit_SuperAdminEndToEnd(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{user: &session.User{ID: "1", Role: session.RoleSuperAdmin}}
	ctrl, store, ui := newHarness(gate, backend)

	outcome := ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})

	assert.Equal(t, OutcomeSucceeded, outcome)
	notes, navs := ui.snapshot()
	assert.Equal(t, []notification{{Message: MessageLoginSuccess, Kind: KindSuccess}}, notes)
	assert.Equal(t, []string{DefaultPrivilegedRoute}, navs)

	s := store.Session()
	require.NotNil(t, s.User)
	assert.Equal(t, "1", s.User.ID)
	assert.Equal(t, session.RoleSuperAdmin, s.User.Role)
	assert.False(t, s.IsLoading)
}

func TestSubmit_PrecheckRejectionEndToEnd(t *testing.T) {
	gate := &stubGate{result: validation.Rejected("Invalid account")}
	backend := &stubBackend{user: &session.User{ID: "1", Role: session.RoleStandard}}
	ctrl, store, ui := newHarness(gate, backend)
	before := store.Session()

	outcome := ctrl.Submit(context.Background(), Credentials{Identifier: "bad", Secret: "x"})

	assert.Equal(t, OutcomeRejected, outcome)
	notes, navs := ui.snapshot()
	assert.Equal(t, []notification{{Message: "Invalid account", Kind: KindError}}, notes)
	assert.Empty(t, navs)
	assert.Zero(t, backend.callCount())
	assert.Equal(t, before, store.Session())
}

func TestSubmit_RoleRouting(t *testing.T) {
	tests := []struct {
		role  session.Role
		route string
	}{
		{role: session.RoleSuperAdmin, route: DefaultPrivilegedRoute},
		{role: session.RoleAdmin, route: DefaultStandardRoute},
		{role: session.RoleStandard, route: DefaultStandardRoute},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			gate := &stubGate{result: validation.Passed()}
			backend := &stubBackend{user: &session.User{ID: "7", Role: tt.role}}
			ctrl, _, ui := newHarness(gate, backend)

			ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})

			_, navs := ui.snapshot()
			assert.Equal(t, []string{tt.route}, navs)
		})
	}
}

func TestSubmit_CustomRoutes(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{user: &session.User{ID: "7", Role: session.RoleSuperAdmin}}
	store := session.NewStore(backend)
	ui := &recordingUI{}
	ctrl := NewController(gate, store, ui, ui, WithRoutes(Routes{Privileged: "/admin", Standard: "/dashboard"}))

	ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})

	_, navs := ui.snapshot()
	assert.Equal(t, []string{"/admin"}, navs)
}

func TestSubmit_LoginFailure(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{err: errors.New("401")}
	ctrl, store, ui := newHarness(gate, backend)

	outcome := ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "wrong"})

	assert.Equal(t, OutcomeFailed, outcome)
	notes, navs := ui.snapshot()
	assert.Equal(t, []notification{{Message: MessageLoginFailed, Kind: KindError}}, notes)
	assert.Empty(t, navs)
	assert.Nil(t, store.Session().User)
	assert.False(t, store.Session().IsLoading)
}

func TestSubmit_ResubmitAfterFailure(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{err: errors.New("401")}
	ctrl, _, ui := newHarness(gate, backend)

	assert.Equal(t, OutcomeFailed, ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "wrong"}))

	backend.mu.Lock()
	backend.err = nil
	backend.user = &session.User{ID: "1", Role: session.RoleStandard}
	backend.mu.Unlock()

	assert.Equal(t, OutcomeSucceeded, ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "right"}))
	notes, navs := ui.snapshot()
	assert.Len(t, notes, 2)
	assert.Equal(t, []string{DefaultStandardRoute}, navs)
	assert.Equal(t, 2, backend.callCount())
}

func TestSubmit_ConcurrentSubmissionIgnored(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{
		user:    &session.User{ID: "1", Role: session.RoleStandard},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl, store, ui := newHarness(gate, backend)

	first := ctrl.Start(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})
	<-backend.started
	require.True(t, store.Session().IsLoading)
	assert.True(t, ctrl.Busy())

	second := ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})
	assert.Equal(t, OutcomeIgnored, second)
	assert.Equal(t, 1, backend.callCount())
	assert.Equal(t, 1, gate.callCount())
	notes, navs := ui.snapshot()
	assert.Empty(t, notes)
	assert.Empty(t, navs)

	close(backend.release)
	assert.Equal(t, OutcomeSucceeded, first.Wait())

	notes, navs = ui.snapshot()
	assert.Len(t, notes, 1)
	assert.Equal(t, []string{DefaultStandardRoute}, navs)
	assert.False(t, ctrl.Busy())
}

func TestStart_CancelResolvesAsFailure(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{
		user:    &session.User{ID: "1", Role: session.RoleStandard},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	defer close(backend.release)
	ctrl, store, ui := newHarness(gate, backend)

	sub := ctrl.Start(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})
	<-backend.started
	sub.Cancel()

	assert.Equal(t, OutcomeFailed, sub.Wait())
	notes, navs := ui.snapshot()
	assert.Equal(t, []notification{{Message: MessageLoginFailed, Kind: KindError}}, notes)
	assert.Empty(t, navs)
	assert.False(t, store.Session().IsLoading)
	assert.Nil(t, store.Session().User)
}

func TestRoutes_ForUnknownRole(t *testing.T) {
	_, err := DefaultRoutes().For(session.Role("OWNER"))
	assert.ErrorIs(t, err, session.ErrUnknownRole)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ignored", OutcomeIgnored.String())
	assert.Equal(t, "succeeded", OutcomeSucceeded.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
}

func TestSubmit_MissingRoleLeavesSessionSignedOut(t *testing.T) {
	gate := &stubGate{result: validation.Passed()}
	backend := &stubBackend{user: &session.User{ID: "1", Email: "a@b.com"}}
	ctrl, store, ui := newHarness(gate, backend)

	outcome := ctrl.Submit(context.Background(), Credentials{Identifier: "a@b.com", Secret: "x"})

	assert.Equal(t, OutcomeFailed, outcome)
	notes, navs := ui.snapshot()
	assert.Equal(t, []notification{{Message: MessageLoginFailed, Kind: KindError}}, notes)
	assert.Empty(t, navs)
	assert.Equal(t, session.Session{}, store.Session())
}
