package authclient_test

import (
	"context"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testUser() *authclient.User {
	return &authclient.User{
		ID:    uuid.MustParse("8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab"),
		Email: "ada@example.com",
		Name:  "Ada Lovelace",
	}
}

func testSessions() []authclient.Session {
	return []authclient.Session{
		{SessionID: "sess-1", UserID: "8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab", DeviceInfo: "Firefox on Linux"},
		{SessionID: "sess-2", UserID: "8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab", DeviceInfo: "Safari on iOS"},
	}
}

func newTestManager(svc authclient.Service, store authclient.TokenStore, opts ...authclient.ManagerOption) *authclient.Manager {
	opts = append([]authclient.ManagerOption{authclient.WithLogger(quietLogger{})}, opts...)
	return authclient.NewManager(svc, store, opts...)
}

func TestStartWithoutTokenMakesNoNetworkCalls(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Start(context.Background()))

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)

	svc.AssertNotCalled(t, "CurrentUser", mock.Anything, mock.Anything)
}

func TestStartRestoresPersistedSession(t *testing.T) {
	svc := &MockService{}
	svc.On("CurrentUser", mock.Anything, "stored-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "stored-token").Return(testSessions(), nil)

	store := newFakeTokenStore("stored-token")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Start(context.Background()))

	state := manager.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.User)
	assert.Equal(t, "ada@example.com", state.User.Email)
	assert.Equal(t, "stored-token", state.Token)
	assert.Len(t, state.Sessions, 2)
}

func TestStartStaysAuthenticatedWhenSessionFetchFails(t *testing.T) {
	svc := &MockService{}
	svc.On("CurrentUser", mock.Anything, "stored-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "stored-token").
		Return(nil, goerrors.New("Failed to get sessions", goerrors.CategoryOperation))

	store := newFakeTokenStore("stored-token")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Start(context.Background()))

	state := manager.State()
	assert.True(t, state.IsAuthenticated)
	assert.Empty(t, state.Error)
	assert.Empty(t, state.Sessions)
}

func TestStartRemovesStaleTokenExactlyOnce(t *testing.T) {
	svc := &MockService{}
	svc.On("CurrentUser", mock.Anything, "stale-token").Return(nil, nil)

	store := newFakeTokenStore("stale-token")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Start(context.Background()))

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Token)
	assert.Equal(t, 1, store.RemoveCalls())
	assert.False(t, store.Has(context.Background()))
}

func TestLoginSuccess(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token", TokenType: "bearer"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	})
	require.NoError(t, err)

	state := manager.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, "issued-token", state.Token)
	assert.Len(t, state.Sessions, 2)

	token, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)
}

func TestLoginFailureSurfacesServerMessage(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "wrong").
		Return(nil, goerrors.New("Invalid email or password", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized))

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
	assert.Equal(t, "Invalid email or password", state.Error)
}

func TestLoginNilUserClearsStoredToken(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(nil, nil)

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	})
	require.ErrorIs(t, err, authclient.ErrUserInfoUnavailable)

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, "Failed to get user information", state.Error)
	assert.False(t, store.Has(context.Background()))
}

func TestLoginRejectsConcurrentAttempt(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)

	var concurrentErr error
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Run(func(mock.Arguments) {
			concurrentErr = manager.Login(context.Background(), authclient.LoginCredentials{
				Email:    "ada@example.com",
				Password: "StrongP@ss123",
			})
		}).
		Return(nil, goerrors.New("Invalid email or password", goerrors.CategoryAuth))

	_ = manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	})

	assert.ErrorIs(t, concurrentErr, authclient.ErrActionInFlight)
	svc.AssertNumberOfCalls(t, "Login", 1)
}

func TestRegisterChainsIntoLogin(t *testing.T) {
	creds := authclient.RegisterCredentials{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "StrongP@ss123",
		ConfirmPassword: "StrongP@ss123",
	}

	svc := &MockService{}
	svc.On("Register", mock.Anything, creds).Return(testUser(), nil)
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Register(context.Background(), creds))

	state := manager.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "issued-token", state.Token)
}

func TestRegisterFailureDoesNotAttemptLogin(t *testing.T) {
	creds := authclient.RegisterCredentials{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "StrongP@ss123",
		ConfirmPassword: "StrongP@ss123",
	}

	svc := &MockService{}
	svc.On("Register", mock.Anything, creds).
		Return(nil, goerrors.New("Email already registered", goerrors.CategoryConflict))

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Register(context.Background(), creds)
	require.Error(t, err)

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, "Email already registered", state.Error)

	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterRejectsWeakPasswordLocally(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Register(context.Background(), authclient.RegisterCredentials{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "short",
		ConfirmPassword: "short",
	})
	require.Error(t, err)

	state := manager.State()
	assert.Equal(t, "Password must be at least 8 characters", state.Error)
	assert.False(t, state.IsLoading)

	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.Register(context.Background(), authclient.RegisterCredentials{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "StrongP@ss123",
		ConfirmPassword: "StrongP@ss124",
	})
	require.Error(t, err)

	assert.Equal(t, "Passwords do not match", manager.State().Error)
}

func TestLogoutClearsStateEvenWhenRemoteFails(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)
	svc.On("Logout", mock.Anything, "issued-token").
		Return(goerrors.New("Logout failed", goerrors.CategoryOperation))

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	}))
	require.NoError(t, manager.Logout(context.Background()))

	state := manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.Empty(t, state.Sessions)
	assert.False(t, store.Has(context.Background()))
}

func TestRefreshSessionsRequiresToken(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	err := manager.RefreshSessions(context.Background())
	require.ErrorIs(t, err, authclient.ErrMissingToken)

	// session errors are returned, never surfaced through the error slot
	assert.Empty(t, manager.State().Error)
}

func TestTerminateSessionRefetchesList(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil).Once()
	svc.On("TerminateSession", mock.Anything, "issued-token", "sess-2").Return(nil)
	svc.On("Sessions", mock.Anything, "issued-token").
		Return(testSessions()[:1], nil).Once()

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	}))
	require.NoError(t, manager.TerminateSession(context.Background(), "sess-2"))

	state := manager.State()
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, "sess-1", state.Sessions[0].SessionID)
}

func TestTerminateSessionRefetchesEvenOnFailure(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)
	svc.On("TerminateSession", mock.Anything, "issued-token", "sess-2").
		Return(goerrors.New("Failed to terminate session", goerrors.CategoryOperation))

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	}))

	err := manager.TerminateSession(context.Background(), "sess-2")
	require.Error(t, err)

	svc.AssertNumberOfCalls(t, "Sessions", 2)
	assert.Empty(t, manager.State().Error)
}

func TestClearErrorOnlyResetsErrorSlot(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "wrong").
		Return(nil, goerrors.New("Invalid email or password", goerrors.CategoryAuth))

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	_ = manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	require.Equal(t, "Invalid email or password", manager.State().Error)

	manager.ClearError()

	state := manager.State()
	assert.Empty(t, state.Error)
	assert.False(t, state.IsAuthenticated)
}

func TestSubscribeNotifiesUntilCancelled(t *testing.T) {
	svc := &MockService{}
	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)

	var calls int
	cancel := manager.Subscribe(func(authclient.State) {
		calls++
	})

	manager.ClearError()
	require.Equal(t, 1, calls)

	cancel()
	manager.ClearError()
	assert.Equal(t, 1, calls)
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store)
	require.NoError(t, manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	}))

	snapshot := manager.State()
	snapshot.User.Email = "tampered@example.com"
	snapshot.Sessions[0].SessionID = "tampered"

	state := manager.State()
	assert.Equal(t, "ada@example.com", state.User.Email)
	assert.Equal(t, "sess-1", state.Sessions[0].SessionID)
}

func TestActivityEventsAreEmitted(t *testing.T) {
	svc := &MockService{}
	svc.On("Login", mock.Anything, "ada@example.com", "StrongP@ss123").
		Return(&authclient.AuthResponse{AccessToken: "issued-token"}, nil)
	svc.On("CurrentUser", mock.Anything, "issued-token").Return(testUser(), nil)
	svc.On("Sessions", mock.Anything, "issued-token").Return(testSessions(), nil)

	sink := &MockActivitySink{}
	sink.On("Record", mock.Anything, mock.MatchedBy(func(event authclient.ActivityEvent) bool {
		return event.EventType == authclient.ActivityEventLoginSuccess
	})).Return(nil)

	store := newFakeTokenStore("")

	manager := newTestManager(svc, store, authclient.WithActivitySink(sink))
	require.NoError(t, manager.Login(context.Background(), authclient.LoginCredentials{
		Email:    "ada@example.com",
		Password: "StrongP@ss123",
	}))

	sink.AssertExpectations(t)
}
