package authclient

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Manager is the authentication state container. It is the single writer of
// State; UI layers read through State and Subscribe and never observe a
// partially applied transition.
//
// Duplicate submissions are an explicit policy here, not an accident of UI
// disabling: Login and Register reject with ErrActionInFlight while another
// loading action is outstanding.
type Manager struct {
	svc    Service
	store  TokenStore
	logger Logger
	sink   ActivitySink
	now    func() time.Time

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewManager returns a new state container wired to the remote service and
// the token store.
func NewManager(svc Service, store TokenStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		svc:    svc,
		store:  store,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
		subs:   map[int]func(State){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// State returns a snapshot of the current authentication state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// Subscribe registers a listener invoked with a snapshot after every
// committed state change. The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Start restores a persisted session, if any. With no stored token it is a
// no-op that leaves the state unauthenticated without touching the network.
// A token that no longer resolves to a user is removed and the state resets;
// that outcome is not an error.
func (m *Manager) Start(ctx context.Context) error {
	if !m.store.Has(ctx) {
		return nil
	}

	token, err := m.store.Get(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read stored token")
	}

	m.dispatch(loginRequest{})

	user, err := m.svc.CurrentUser(ctx, token)
	if err != nil || user == nil {
		if err != nil {
			m.logger.Error("session restore failed: %v", err)
		}
		if err := m.store.Remove(ctx); err != nil {
			m.logger.Warn("failed to remove stale token: %v", err)
		}
		m.dispatch(logoutReset{})
		return nil
	}

	m.dispatch(loginSuccess{user: user, token: token})
	m.emit(ctx, ActivityEventSessionRestored, user.ID.String(), nil)
	m.loadSessions(ctx, token)

	return nil
}

// Login authenticates with the remote service, persists the issued token,
// and resolves the current user. On failure the error message is stored in
// State.Error and the error is returned so the call site can react too.
func (m *Manager) Login(ctx context.Context, creds LoginCredentials) error {
	if err := m.begin(loginRequest{}); err != nil {
		return err
	}

	return m.login(ctx, creds.Email, creds.Password)
}

func (m *Manager) login(ctx context.Context, email, password string) error {
	user, token, err := m.authenticate(ctx, email, password)
	if err != nil {
		if removeErr := m.store.Remove(ctx); removeErr != nil {
			m.logger.Warn("failed to remove token after login failure: %v", removeErr)
		}
		m.dispatch(loginFailure{message: messageFromError(err)})
		m.emit(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": email,
			"error":      err.Error(),
		})
		return err
	}

	m.dispatch(loginSuccess{user: user, token: token})
	m.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), map[string]any{
		"identifier": email,
	})
	m.loadSessions(ctx, token)

	return nil
}

// authenticate runs the login exchange: credentials to token, token to user.
// The token is persisted as soon as it is issued so a crash between the two
// calls still leaves a restorable session.
func (m *Manager) authenticate(ctx context.Context, email, password string) (*User, string, error) {
	resp, err := m.svc.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	if err := m.store.Set(ctx, resp.AccessToken); err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to persist token")
	}

	user, err := m.svc.CurrentUser(ctx, resp.AccessToken)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrUserInfoUnavailable
	}

	return user, resp.AccessToken, nil
}

// Register creates the account and then performs the login transition with
// the same credentials; registration by itself does not authenticate.
func (m *Manager) Register(ctx context.Context, creds RegisterCredentials) error {
	if err := m.begin(registerRequest{}); err != nil {
		return err
	}

	if err := validateRegistration(creds); err != nil {
		m.dispatch(registerFailure{message: messageFromError(err)})
		return err
	}

	if _, err := m.svc.Register(ctx, creds); err != nil {
		m.dispatch(registerFailure{message: messageFromError(err)})
		m.emit(ctx, ActivityEventRegisterFailure, "", map[string]any{
			"identifier": creds.Email,
			"error":      err.Error(),
		})
		return err
	}

	m.emit(ctx, ActivityEventRegisterSuccess, "", map[string]any{
		"identifier": creds.Email,
	})

	return m.login(ctx, creds.Email, creds.Password)
}

// Logout clears the local session unconditionally. A failing remote call is
// logged and ignored so the user is never stranded in a half logged-in state.
func (m *Manager) Logout(ctx context.Context) error {
	state := m.State()

	if state.Token != "" {
		if err := m.svc.Logout(ctx, state.Token); err != nil {
			m.logger.Warn("remote logout failed: %v", err)
		}
	}

	if err := m.store.Remove(ctx); err != nil {
		m.logger.Warn("failed to remove stored token: %v", err)
	}

	m.dispatch(logoutReset{})

	userID := ""
	if state.User != nil {
		userID = state.User.ID.String()
	}
	m.emit(ctx, ActivityEventLogout, userID, nil)

	return nil
}

// ClearError resets the error slot. No other field changes.
func (m *Manager) ClearError() {
	m.dispatch(errorCleared{})
}

// RefreshSessions replaces the session list wholesale. Unlike login and
// register failures, errors here are returned to the caller and never stored
// in State.Error.
func (m *Manager) RefreshSessions(ctx context.Context) error {
	token, err := m.requireToken()
	if err != nil {
		return err
	}

	return m.replaceSessions(ctx, token)
}

// TerminateSession terminates one remote session then re-fetches the list,
// win or lose, so the display reflects whatever the server now holds.
func (m *Manager) TerminateSession(ctx context.Context, sessionID string) error {
	token, err := m.requireToken()
	if err != nil {
		return err
	}

	termErr := m.svc.TerminateSession(ctx, token, sessionID)
	if termErr == nil {
		m.emit(ctx, ActivityEventSessionTerminated, "", map[string]any{
			"session_id": sessionID,
		})
	}

	if err := m.replaceSessions(ctx, token); err != nil && termErr == nil {
		return err
	}

	return termErr
}

// TerminateAllSessions terminates every remote session then re-fetches the
// list.
func (m *Manager) TerminateAllSessions(ctx context.Context) error {
	token, err := m.requireToken()
	if err != nil {
		return err
	}

	termErr := m.svc.TerminateAllSessions(ctx, token)

	if err := m.replaceSessions(ctx, token); err != nil && termErr == nil {
		return err
	}

	return termErr
}

// begin atomically rejects a duplicate loading action and commits the
// request transition.
func (m *Manager) begin(act action) error {
	m.mu.Lock()
	if m.state.IsLoading {
		m.mu.Unlock()
		return ErrActionInFlight
	}
	next := reduce(m.state, act)
	m.state = next
	snapshot, listeners := cloneState(next), m.listeners()
	m.mu.Unlock()

	m.notify(snapshot, listeners)
	return nil
}

func (m *Manager) dispatch(act action) {
	m.mu.Lock()
	next := reduce(m.state, act)
	m.state = next
	snapshot, listeners := cloneState(next), m.listeners()
	m.mu.Unlock()

	m.notify(snapshot, listeners)
}

// listeners must be called with the mutex held.
func (m *Manager) listeners() []func(State) {
	out := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) notify(snapshot State, listeners []func(State)) {
	for _, fn := range listeners {
		if fn != nil {
			fn(snapshot)
		}
	}
}

func (m *Manager) requireToken() (string, error) {
	m.mu.Lock()
	token := m.state.Token
	m.mu.Unlock()

	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// loadSessions is the best-effort fetch after login or restore. The session
// list is supplementary; a failure is logged and the state stays intact.
func (m *Manager) loadSessions(ctx context.Context, token string) {
	sessions, err := m.svc.Sessions(ctx, token)
	if err != nil {
		m.logger.Warn("session list fetch failed: %v", err)
		return
	}
	m.dispatch(sessionsLoaded{sessions: sessions})
}

func (m *Manager) replaceSessions(ctx context.Context, token string) error {
	sessions, err := m.svc.Sessions(ctx, token)
	if err != nil {
		return err
	}
	m.dispatch(sessionsLoaded{sessions: sessions})
	return nil
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

// validateRegistration applies the local strength and confirmation checks
// before the payload leaves the process.
func validateRegistration(creds RegisterCredentials) error {
	if result := ValidatePassword(creds.Password); !result.IsValid {
		return goerrors.New(result.Message, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if result := ValidatePasswordConfirmation(creds.Password, creds.ConfirmPassword); !result.IsValid {
		return goerrors.New(result.Message, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

func cloneState(s State) State {
	out := s

	if s.User != nil {
		user := *s.User
		out.User = &user
	}

	if len(s.Sessions) > 0 {
		out.Sessions = make([]Session, len(s.Sessions))
		copy(out.Sessions, s.Sessions)
	}

	return out
}
