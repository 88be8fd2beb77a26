package authclient

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeMissingToken   = "MISSING_TOKEN"
	textCodeActionInFlight = "ACTION_IN_FLIGHT"
	textCodeUserInfo       = "USER_INFO_UNAVAILABLE"
)

// ErrMissingToken is returned by session operations when no bearer token is
// available.
var ErrMissingToken = goerrors.New("no authentication token available", goerrors.CategoryAuth).
	WithTextCode(textCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrActionInFlight is returned when a login or register is requested while
// another one is still loading. Concurrent duplicate submissions are rejected
// rather than serialized.
var ErrActionInFlight = goerrors.New("authentication action already in flight", goerrors.CategoryConflict).
	WithTextCode(textCodeActionInFlight).
	WithCode(goerrors.CodeConflict)

// ErrUserInfoUnavailable is surfaced when a freshly issued token cannot be
// resolved to a user. The message is shown verbatim in UIs.
var ErrUserInfoUnavailable = goerrors.New("Failed to get user information", goerrors.CategoryAuth).
	WithTextCode(textCodeUserInfo).
	WithCode(goerrors.CodeUnauthorized)

// messageFromError extracts the human-readable message an action should
// surface. Rich errors carry the remote detail verbatim.
func messageFromError(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	return err.Error()
}

// IsAuthError reports whether err represents a credential or token rejection
// as opposed to a transport failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuth
	}

	return false
}
