package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	loginPath           = "/auth/login"
	registerPath        = "/auth/register"
	logoutPath          = "/auth/logout"
	currentUserPath     = "/auth/me"
	sessionsPath        = "/sessions/"
	terminatePath       = "/sessions/terminate"
	terminateAllPath    = "/sessions/terminate-all"
	cleanupSessionsPath = "/sessions/cleanup"
)

// ClientConfig holds remote API configuration.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     Logger
}

// HTTPService implements Service against a JSON-over-HTTP auth API.
type HTTPService struct {
	baseURL    string
	httpClient *http.Client
	logger     Logger
}

var _ Service = (*HTTPService)(nil)

// NewHTTPService creates a new remote API client.
func NewHTTPService(cfg ClientConfig) *HTTPService {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &HTTPService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

// Login implements Service.
func (s *HTTPService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, status, err := s.do(ctx, http.MethodPost, loginPath, "", LoginCredentials{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, apiError("login", status, body, "Login failed")
	}

	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode login response")
	}

	return &resp, nil
}

// Register implements Service.
func (s *HTTPService) Register(ctx context.Context, creds RegisterCredentials) (*User, error) {
	body, status, err := s.do(ctx, http.MethodPost, registerPath, "", creds)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return nil, apiError("register", status, body, "Registration failed")
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode register response")
	}

	return &user, nil
}

// Logout implements Service. The caller treats failure as non-fatal; local
// state is cleared regardless.
func (s *HTTPService) Logout(ctx context.Context, token string) error {
	body, status, err := s.do(ctx, http.MethodPost, logoutPath, token, nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return apiError("logout", status, body, "Logout failed")
	}

	return nil
}

// CurrentUser implements Service. A non-2xx status signals an invalid or
// expired token and yields (nil, nil).
func (s *HTTPService) CurrentUser(ctx context.Context, token string) (*User, error) {
	body, status, err := s.do(ctx, http.MethodGet, currentUserPath, token, nil)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode current user response")
	}

	return &user, nil
}

type sessionListResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

// Sessions implements Service.
func (s *HTTPService) Sessions(ctx context.Context, token string) ([]Session, error) {
	body, status, err := s.do(ctx, http.MethodGet, sessionsPath, token, nil)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, apiError("sessions", status, body, "Failed to get sessions")
	}

	var resp sessionListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode session list")
	}

	return resp.Sessions, nil
}

type terminateRequest struct {
	SessionID string `json:"session_id"`
}

// TerminateSession implements Service.
func (s *HTTPService) TerminateSession(ctx context.Context, token, sessionID string) error {
	body, status, err := s.do(ctx, http.MethodDelete, terminatePath, token, terminateRequest{SessionID: sessionID})
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return apiError("terminate_session", status, body, "Failed to terminate session")
	}

	return nil
}

// TerminateAllSessions implements Service.
func (s *HTTPService) TerminateAllSessions(ctx context.Context, token string) error {
	body, status, err := s.do(ctx, http.MethodDelete, terminateAllPath, token, nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return apiError("terminate_all_sessions", status, body, "Failed to terminate all sessions")
	}

	return nil
}

type cleanupResponse struct {
	RemovedSessions int `json:"removed_sessions"`
}

// CleanupSessions implements Service. It is an admin operation that prunes
// expired sessions server-side and reports how many were removed.
func (s *HTTPService) CleanupSessions(ctx context.Context, token string) (int, error) {
	body, status, err := s.do(ctx, http.MethodPost, cleanupSessionsPath, token, nil)
	if err != nil {
		return 0, err
	}

	if status != http.StatusOK {
		return 0, apiError("cleanup_sessions", status, body, "Failed to cleanup sessions")
	}

	var resp cleanupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode cleanup response")
	}

	return resp.RemovedSessions, nil
}

func (s *HTTPService) do(ctx context.Context, method, path, token string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to encode request payload")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to build request")
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryOperation, "auth service unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read response body")
	}

	return body, resp.StatusCode, nil
}

type apiErrorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// apiError maps a non-2xx response to a rich error. The server's
// detail/message text is surfaced verbatim so UIs can show it as-is.
func apiError(operation string, status int, body []byte, fallback string) error {
	var parsed apiErrorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Detail
	if message == "" {
		message = parsed.Message
	}
	if message == "" {
		message = fallback
	}

	category := goerrors.CategoryOperation
	code := goerrors.CodeInternal

	switch status {
	case http.StatusUnauthorized:
		category = goerrors.CategoryAuth
		code = goerrors.CodeUnauthorized
	case http.StatusForbidden:
		category = goerrors.CategoryAuth
		code = goerrors.CodeForbidden
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		category = goerrors.CategoryValidation
		code = goerrors.CodeBadRequest
	case http.StatusConflict:
		category = goerrors.CategoryConflict
		code = goerrors.CodeConflict
	}

	return goerrors.New(message, category).
		WithCode(code).
		WithMetadata(map[string]any{
			"operation": operation,
			"status":    status,
		})
}
