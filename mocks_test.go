package authclient_test

import (
	"context"
	"sync"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

// MockService implements authclient.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, email, password string) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	var resp *authclient.AuthResponse
	if v := args.Get(0); v != nil {
		resp = v.(*authclient.AuthResponse)
	}
	return resp, args.Error(1)
}

func (m *MockService) Register(ctx context.Context, creds authclient.RegisterCredentials) (*authclient.User, error) {
	args := m.Called(ctx, creds)
	var user *authclient.User
	if v := args.Get(0); v != nil {
		user = v.(*authclient.User)
	}
	return user, args.Error(1)
}

func (m *MockService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockService) CurrentUser(ctx context.Context, token string) (*authclient.User, error) {
	args := m.Called(ctx, token)
	var user *authclient.User
	if v := args.Get(0); v != nil {
		user = v.(*authclient.User)
	}
	return user, args.Error(1)
}

func (m *MockService) Sessions(ctx context.Context, token string) ([]authclient.Session, error) {
	args := m.Called(ctx, token)
	var sessions []authclient.Session
	if v := args.Get(0); v != nil {
		sessions = v.([]authclient.Session)
	}
	return sessions, args.Error(1)
}

func (m *MockService) TerminateSession(ctx context.Context, token, sessionID string) error {
	args := m.Called(ctx, token, sessionID)
	return args.Error(0)
}

func (m *MockService) TerminateAllSessions(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockService) CleanupSessions(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

// MockActivitySink implements authclient.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event authclient.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fakeTokenStore counts calls so tests can assert exactly-once semantics.
type fakeTokenStore struct {
	mu          sync.Mutex
	token       string
	setCalls    int
	removeCalls int
}

func newFakeTokenStore(token string) *fakeTokenStore {
	return &fakeTokenStore{token: token}
}

func (f *fakeTokenStore) Get(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokenStore) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.setCalls++
	return nil
}

func (f *fakeTokenStore) Remove(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.removeCalls++
	return nil
}

func (f *fakeTokenStore) Has(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != ""
}

func (f *fakeTokenStore) RemoveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeCalls
}

// quietLogger keeps test output readable.
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
