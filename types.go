package authclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// User is the account record returned by the remote authentication service.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Session is a server-tracked record of one authenticated login instance.
// It is distinct from the local state held by the Manager.
type Session struct {
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	ExpiresAt      time.Time  `json:"expires_at"`
	DeviceInfo     string     `json:"device_info,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// LoginCredentials is the payload for a login attempt.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials is the payload for a registration attempt.
type RegisterCredentials struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse is the body returned by a successful login call.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// Service is the remote authentication API consumed by the Manager. The
// server owns credentials, hashing, and session bookkeeping; this side only
// calls it.
type Service interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, creds RegisterCredentials) (*User, error)
	Logout(ctx context.Context, token string) error
	// CurrentUser returns (nil, nil) when the token is invalid or expired.
	// That is a signal, not an error.
	CurrentUser(ctx context.Context, token string) (*User, error)
	Sessions(ctx context.Context, token string) ([]Session, error)
	TerminateSession(ctx context.Context, token, sessionID string) error
	TerminateAllSessions(ctx context.Context, token string) error
	CleanupSessions(ctx context.Context, token string) (int, error)
}

// TokenStore persists the bearer token across process restarts. Presence of
// a stored token is the sole signal used at startup to attempt restoration.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Remove(ctx context.Context) error
	Has(ctx context.Context) bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// DisplayName falls back to the email local part when the server did not
// return a name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
