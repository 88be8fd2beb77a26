package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry claim from a bearer token without
// verifying its signature. Verification is the server's job; this side only
// introspects for display and pre-flight checks. The second return is false
// when the token is opaque or carries no expiry.
func TokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// TokenSubject returns the subject claim, if present. Useful for logging a
// stable identity without another network round trip.
func TokenSubject(raw string) (string, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}

	return sub, true
}

// IsTokenExpired reports whether an expiry-bearing token is already past its
// expiry at the given instant. Opaque tokens are never reported expired.
func IsTokenExpired(raw string, now time.Time) bool {
	exp, ok := TokenExpiry(raw)
	if !ok {
		return false
	}
	return now.After(exp)
}
