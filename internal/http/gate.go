package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/ports"
)

// DefaultExcludedPaths stay reachable without credentials.
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
}

// GateOptions groups dependencies for the request gate.
type GateOptions struct {
	Strategy ports.AuthStrategy // Optional: nil disables the gate
	Excluded []string           // Optional: defaults to DefaultExcludedPaths
	Logger   *slog.Logger       // Optional: structured logger
	Metrics  *metrics.Recorder  // Optional: Prometheus recorder
}

// Decision is the outcome of gating one request.
type Decision struct {
	Outcome string           // one of the metrics.Outcome* values
	User    *domainauth.User // set when Outcome is OutcomePass
	Err     error            // set when Outcome is OutcomeError
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == metrics.OutcomePass || d.Outcome == metrics.OutcomeExcluded
}

// Reject returns the error response for a rejected decision. Store faults
// answer 503 when the store is unreachable, 504 on timeout and 500 otherwise.
func (d Decision) Reject() ErrorParams {
	switch d.Outcome {
	case metrics.OutcomeUnauthorized:
		return errUnauthorized
	case metrics.OutcomeForbidden:
		return errForbidden
	default:
		return faultResponse(d.Err)
	}
}

// Gate decides per request whether it is unauthenticated (401), forbidden (403)
// or allowed to proceed with the resolved user attached to its context.
type Gate struct {
	strategy ports.AuthStrategy
	excluded []string
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// NewGate constructs a Gate.
func NewGate(opts GateOptions) *Gate {
	excluded := opts.Excluded
	if excluded == nil {
		excluded = DefaultExcludedPaths
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		strategy: opts.Strategy,
		excluded: excluded,
		logger:   logger.With("component", "gate"),
		metrics:  opts.Metrics,
	}
}

// Decide evaluates the request without writing a response.
func (g *Gate) Decide(r *http.Request) Decision {
	if g.strategy == nil || !g.strategy.RequireAuth(r.URL.Path, g.excluded) {
		return Decision{Outcome: metrics.OutcomeExcluded}
	}

	_, hasHeader := g.strategy.AuthorizationHeader(r)
	_, hasCookie := g.strategy.SessionCookie(r)
	if !hasHeader && !hasCookie {
		return Decision{Outcome: metrics.OutcomeUnauthorized}
	}

	user, err := g.strategy.CurrentUser(r)
	if err != nil {
		return Decision{Outcome: metrics.OutcomeError, Err: err}
	}
	if user == nil {
		return Decision{Outcome: metrics.OutcomeForbidden}
	}
	return Decision{Outcome: metrics.OutcomePass, User: user}
}

// Record counts and logs a decision.
func (g *Gate) Record(r *http.Request, d Decision) {
	g.metrics.GateDecision(d.Outcome)

	ctx := r.Context()
	if d.Err != nil {
		g.logger.ErrorContext(ctx, "resolve current user failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", d.Err))
		return
	}
	if d.Outcome == metrics.OutcomeExcluded {
		return
	}
	attrs := []any{slog.String("path", r.URL.Path), slog.String("outcome", d.Outcome)}
	if d.User != nil {
		attrs = append(attrs, slog.String("user_id", d.User.ID))
	}
	g.logger.DebugContext(ctx, "gate decision", attrs...)
}

// Middleware returns the gate as net/http middleware.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)
		g.Record(r, d)
		if !d.Allowed() {
			WriteError(w, d.Reject())
			return
		}
		if d.User != nil {
			r = r.WithContext(SetUserInContext(r.Context(), d.User))
		}
		next.ServeHTTP(w, r)
	})
}
