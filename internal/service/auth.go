package service

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
)

// DefaultSessionCookieName is used when no cookie name is configured.
const DefaultSessionCookieName = "_my_session_id"

var _ ports.AuthStrategy = (*Auth)(nil)

// AuthOptions groups dependencies for Auth.
type AuthOptions struct {
	CookieName string       // Optional: session cookie name (default _my_session_id)
	Logger     *slog.Logger // Optional: structured logger
}

// Auth is the base authentication strategy. It knows which paths are protected and
// how to read credentials off a request, but resolves no users.
type Auth struct {
	cookieName string
	logger     *slog.Logger
}

// NewAuth constructs the base strategy.
func NewAuth(opts AuthOptions) *Auth {
	name := strings.TrimSpace(opts.CookieName)
	if name == "" {
		name = DefaultSessionCookieName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{cookieName: name, logger: logger}
}

// CookieName returns the name of the session cookie.
func (a *Auth) CookieName() string { return a.cookieName }

// RequireAuth reports whether path needs authentication.
//
// It returns false when path or excluded is empty, or when path matches an excluded
// entry. A path and its trailing-slash variant are equivalent. An entry ending in "*"
// matches every path with that prefix.
func (a *Auth) RequireAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return false
	}

	normalized := strings.TrimSuffix(path, "/")
	for _, entry := range excluded {
		if entry == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return false
			}
			continue
		}
		if strings.TrimSuffix(entry, "/") == normalized {
			return false
		}
	}
	return true
}

// AuthorizationHeader returns the raw Authorization header value.
func (a *Auth) AuthorizationHeader(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	return v, v != ""
}

// BearerToken returns the token of a "Bearer <token>" Authorization header.
func (a *Auth) BearerToken(r *http.Request) (string, bool) {
	h, ok := a.AuthorizationHeader(r)
	if !ok {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SessionCookie returns the session ID carried by the session cookie.
func (a *Auth) SessionCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(a.cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// CurrentUser always returns nil: the base strategy cannot resolve identities.
func (a *Auth) CurrentUser(_ *http.Request) (*domainauth.User, error) {
	return nil, nil
}
