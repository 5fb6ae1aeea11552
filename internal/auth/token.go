package auth

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Claims describes the parts of a bearer token payload the client reads.
// The signature is never checked here; the backend stays the authority.
type Claims struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo is what the client learned from a bearer token.
type TokenInfo struct {
	JWT       bool
	Subject   string
	Role      string
	Name      string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an exp claim before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// InspectToken reads claims from a JWT without verifying it. Opaque tokens
// yield a zero TokenInfo and no error.
func InspectToken(token string) TokenInfo {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{JWT: true, Subject: claims.Subject, Role: claims.Role, Name: claims.Name}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}

// CheckToken fails with UNAUTHORIZED when the token is absent or expired.
func CheckToken(token string, now time.Time) (TokenInfo, error) {
	if strings.TrimSpace(token) == "" {
		return TokenInfo{}, errorutil.NewUnauthorized("no saved session, please sign in")
	}
	info := InspectToken(token)
	if info.Expired(now) {
		return info, errorutil.NewUnauthorized("session expired, please sign in again")
	}
	if info.Role != "" {
		info.Role = string(normalize.Role(info.Role))
	}
	return info, nil
}
