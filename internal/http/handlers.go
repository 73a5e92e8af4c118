package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/sessionauth/internal/ports"
	"github.com/target/sessionauth/internal/session"
)

// SessionManager is the session strategy surface the handlers use.
type SessionManager interface {
	ports.SessionStrategy
	CookieName() string
	SessionCount(ctx context.Context) (int, error)
}

// Handlers serves the /api/v1 endpoints.
type Handlers struct {
	Sessions        SessionManager  // Optional: nil when the strategy issues no sessions
	Users           ports.UserStore // Optional: required for login
	SessionLifetime time.Duration   // Cookie Max-Age; zero means a browser-session cookie
	CookieDomain    string
	CookieSecure    bool
	Logger          *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Status reports liveness.
// GET /api/v1/status.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Stats reports the number of stored sessions when the store can count them.
// GET /api/v1/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]int{}
	if h.Sessions != nil {
		n, err := h.Sessions.SessionCount(r.Context())
		switch {
		case err == nil:
			out["sessions"] = n
		case errors.Is(err, session.ErrUnsupported):
		default:
			h.logger().ErrorContext(r.Context(), "count sessions failed", "error", err)
			WriteError(w, faultResponse(err))
			return
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

// Unauthorized always answers 401.
// GET /api/v1/unauthorized.
func (h *Handlers) Unauthorized(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, errUnauthorized)
}

// Forbidden always answers 403.
// GET /api/v1/forbidden.
func (h *Handlers) Forbidden(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, errForbidden)
}

// NotFound answers 404 for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, errNotFound)
}

// Me returns the user the gate attached to the request.
// GET /api/v1/users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, errNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login issues a session for the user with the given email.
// Credentials are not verified here; the route is mounted only in development.
// POST /api/v1/auth_session/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil || h.Users == nil {
		WriteError(w, errNotFound)
		return
	}

	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		req.Email = r.FormValue("email")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: "email missing"})
		return
	}

	ctx := r.Context()
	user, err := h.Users.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, Message: "no user found for this email"})
			return
		}
		h.logger().ErrorContext(ctx, "lookup user failed", "error", err)
		WriteError(w, faultResponse(err))
		return
	}

	id, err := h.Sessions.CreateSession(ctx, user.ID)
	if err != nil {
		h.logger().ErrorContext(ctx, "create session failed", "error", err)
		WriteError(w, faultResponse(err))
		return
	}

	h.setSessionCookie(w, id)
	WriteJSON(w, http.StatusOK, user)
}

// Logout destroys the caller's session.
// DELETE /api/v1/auth_session/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		WriteError(w, errNotFound)
		return
	}

	removed, err := h.Sessions.DestroySession(r)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "logout failed", "error", err)
		WriteError(w, faultResponse(err))
		return
	}
	if !removed {
		WriteError(w, errNotFound)
		return
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     h.Sessions.CookieName(),
		Value:    id,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.SessionLifetime > 0 {
		c.MaxAge = int(h.SessionLifetime.Seconds())
	}
	http.SetCookie(w, c)
}

// clearSessionCookie mirrors the attributes used when setting the cookie.
func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Sessions.CookieName(),
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
