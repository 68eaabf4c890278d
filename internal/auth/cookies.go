package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/models"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetSessionCookies writes both session tokens as HttpOnly, Secure cookies
// that expire together with the tokens they carry.
func SetSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, sessionCookie(AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

// ClearSessionCookies instructs the client to drop both session cookies.
func ClearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := sessionCookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// AccessTokenFromRequest extracts the access token from the accessToken
// cookie, falling back to an "Authorization: Bearer" header.
func AccessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RefreshTokenFromCookie returns the refreshToken cookie value, if any.
func RefreshTokenFromCookie(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func sessionCookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if value != "" {
		if maxAge := int(time.Until(expires).Seconds()); maxAge > 0 {
			c.MaxAge = maxAge
		}
	}
	return c
}
