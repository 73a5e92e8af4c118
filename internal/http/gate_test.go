package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	apperrors "github.com/target/sessionauth/internal/errors"
	mockauth "github.com/target/sessionauth/internal/mocks/auth"
	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/service"
)

// okHandler records whether it ran and which user it saw.
type okHandler struct {
	called bool
	user   *domainauth.User
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.user, _ = UserFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func baseStub(user *domainauth.User, err error) *mockauth.StubStrategy {
	base := service.NewAuth(service.AuthOptions{})
	return &mockauth.StubStrategy{
		RequireAuthFunc:         base.RequireAuth,
		AuthorizationHeaderFunc: base.AuthorizationHeader,
		SessionCookieFunc:       base.SessionCookie,
		CurrentUserFunc:         func(*http.Request) (*domainauth.User, error) { return user, err },
	}
}

func TestGate_Middleware(t *testing.T) {
	alice := &domainauth.User{ID: "u1", Email: "alice@example.com"}

	tests := []struct {
		name       string
		strategy   *mockauth.StubStrategy
		nilGate    bool
		path       string
		cookie     bool
		header     bool
		wantStatus int
		wantBody   string
		wantCalled bool
		wantUser   *domainauth.User
	}{
		{name: "nil strategy passes", nilGate: true, path: "/api/v1/users/me", wantStatus: http.StatusOK, wantCalled: true},
		{name: "excluded path", strategy: baseStub(nil, nil), path: "/api/v1/status", wantStatus: http.StatusOK, wantCalled: true},
		{name: "excluded path with slash", strategy: baseStub(nil, nil), path: "/api/v1/status/", wantStatus: http.StatusOK, wantCalled: true},
		{name: "no credentials", strategy: baseStub(alice, nil), path: "/api/v1/users/me", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Unauthorized"}`},
		{name: "cookie but no user", strategy: baseStub(nil, nil), path: "/api/v1/users/me", cookie: true, wantStatus: http.StatusForbidden, wantBody: `{"error":"Forbidden"}`},
		{name: "header but no user", strategy: baseStub(nil, nil), path: "/api/v1/users/me", header: true, wantStatus: http.StatusForbidden, wantBody: `{"error":"Forbidden"}`},
		{name: "store fault", strategy: baseStub(nil, errors.New("db down")), path: "/api/v1/users/me", cookie: true, wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
		{name: "store unreachable", strategy: baseStub(nil, fmt.Errorf("current user: %w", &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: "database unavailable"})), path: "/api/v1/users/me", cookie: true, wantStatus: http.StatusServiceUnavailable, wantBody: `{"error":"Service Unavailable"}`},
		{name: "store timeout", strategy: baseStub(nil, &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "database operation timed out"}), path: "/api/v1/users/me", cookie: true, wantStatus: http.StatusGatewayTimeout, wantBody: `{"error":"Gateway Timeout"}`},
		{name: "resolved user", strategy: baseStub(alice, nil), path: "/api/v1/users/me", cookie: true, wantStatus: http.StatusOK, wantCalled: true, wantUser: alice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := GateOptions{}
			if !tt.nilGate {
				opts.Strategy = tt.strategy
			}
			next := &okHandler{}
			h := NewGate(opts).Middleware(next)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: service.DefaultSessionCookieName, Value: "abc"})
			}
			if tt.header {
				req.Header.Set("Authorization", "Bearer token")
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, next.called)
			assert.Equal(t, tt.wantUser, next.user)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestGate_BaseStrategyForbidsAnyCredential(t *testing.T) {
	gate := NewGate(GateOptions{Strategy: service.NewAuth(service.AuthOptions{})})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer token")

	rr := httptest.NewRecorder()
	gate.Middleware(&okHandler{}).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGate_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	gate := NewGate(GateOptions{Strategy: baseStub(nil, nil), Metrics: rec})
	h := gate.Middleware(&okHandler{})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "sessionauth_gate_decisions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.InDelta(t, 1, got[metrics.OutcomeUnauthorized], 0)
	assert.InDelta(t, 1, got[metrics.OutcomeExcluded], 0)
}

func TestDecision_Reject(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Decision{Outcome: metrics.OutcomeUnauthorized}.Reject().Code)
	assert.Equal(t, http.StatusForbidden, Decision{Outcome: metrics.OutcomeForbidden}.Reject().Code)
	assert.Equal(t, http.StatusInternalServerError, Decision{Outcome: metrics.OutcomeError, Err: errors.New("boom")}.Reject().Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		Decision{Outcome: metrics.OutcomeError, Err: &apperrors.AppError{Code: apperrors.ErrCodeUnavailable}}.Reject().Code)
	assert.Equal(t, http.StatusGatewayTimeout,
		Decision{Outcome: metrics.OutcomeError, Err: &apperrors.AppError{Code: apperrors.ErrCodeTimeout}}.Reject().Code)
	assert.True(t, Decision{Outcome: metrics.OutcomeExcluded}.Allowed())
	assert.False(t, Decision{Outcome: metrics.OutcomeForbidden}.Allowed())
}
