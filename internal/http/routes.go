package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/ports"
)

// RouterOptions holds everything the HTTP router needs.
type RouterOptions struct {
	Strategy        ports.AuthStrategy // Optional: nil disables authentication
	Users           ports.UserStore    // Optional: enables login when EnableLogin is set
	Excluded        []string           // Optional: defaults to DefaultExcludedPaths
	SessionLifetime time.Duration
	CookieDomain    string
	CookieSecure    bool
	EnableLogin     bool // mount the credential-less login route (development only)
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
}

// NewComponents builds the handlers and the gate described by opts. Routers
// other than NewRouter mount these to serve the same API.
func NewComponents(opts RouterOptions) (*Handlers, *Gate) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		Users:           opts.Users,
		SessionLifetime: opts.SessionLifetime,
		CookieDomain:    opts.CookieDomain,
		CookieSecure:    opts.CookieSecure,
		Logger:          logger,
	}
	if sm, ok := opts.Strategy.(SessionManager); ok {
		h.Sessions = sm
	}

	gate := NewGate(GateOptions{
		Strategy: opts.Strategy,
		Excluded: opts.Excluded,
		Logger:   logger,
		Metrics:  opts.Metrics,
	})
	return h, gate
}

// NewRouter creates the API router.
// Middleware order: Recover, Logging, Gate, then routing.
func NewRouter(opts RouterOptions) http.Handler {
	h, gate := NewComponents(opts)

	r := chi.NewRouter()
	r.Use(Recover(h.Logger))
	r.Use(Logging(h.Logger, opts.Metrics))
	r.Use(gate.Middleware)
	r.Use(middleware.StripSlashes)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/stats", h.Stats)
		r.Get("/unauthorized", h.Unauthorized)
		r.Get("/forbidden", h.Forbidden)
		r.Get("/users/me", h.Me)
		r.Delete("/auth_session/logout", h.Logout)
		if opts.EnableLogin {
			r.Post("/auth_session/login", h.Login)
		}
	})

	return r
}
