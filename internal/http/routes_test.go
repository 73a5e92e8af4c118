package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	apperrors "github.com/target/sessionauth/internal/errors"
	"github.com/target/sessionauth/internal/mocks"
	mockauth "github.com/target/sessionauth/internal/mocks/auth"
	"github.com/target/sessionauth/internal/ports"
	"github.com/target/sessionauth/internal/service"
	"github.com/target/sessionauth/internal/session"
)

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	strategy *service.SessionAuth
	users    *mockauth.MemoryUserStore
}

func newTestEnv(t *testing.T, store ports.SessionStore) *testEnv {
	t.Helper()

	users := mockauth.NewMemoryUserStore(
		domainauth.User{ID: "u1", Email: "alice@example.com", FirstName: "Alice"},
	)
	strategy, err := service.NewSessionAuth(service.SessionAuthOptions{Store: store, Users: users})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(RouterOptions{
		Strategy:        strategy,
		Users:           users,
		SessionLifetime: time.Hour,
		EnableLogin:     true,
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)

	return &testEnv{
		server:   srv,
		client:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
		strategy: strategy,
		users:    users,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func TestRouter_PublicEndpoints(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())

	code, body := env.do(t, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"OK"}`, body)

	code, _ = env.do(t, http.MethodGet, "/api/v1/status/", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/api/v1/unauthorized", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	code, body = env.do(t, http.MethodGet, "/api/v1/forbidden", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, body)
}

func TestRouter_ProtectedWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())

	code, body := env.do(t, http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	// Unknown routes are still behind the gate.
	code, _ = env.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_LoginMeLogout(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())

	code, body := env.do(t, http.MethodPost, "/api/v1/auth_session/login", bytes.NewBufferString(`{"email":"alice@example.com"}`))
	require.Equal(t, http.StatusOK, code, body)

	code, body = env.do(t, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, code)
	var me domainauth.User
	require.NoError(t, json.Unmarshal([]byte(body), &me))
	assert.Equal(t, "u1", me.ID)

	code, body = env.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"sessions":1}`, body)

	code, _ = env.do(t, http.MethodGet, "/api/v1/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(t, http.MethodDelete, "/api/v1/auth_session/logout", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{}`, body)

	// The cookie was cleared, so the next request has no credentials.
	code, _ = env.do(t, http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_LoginErrors(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())

	code, body := env.do(t, http.MethodPost, "/api/v1/auth_session/login", bytes.NewBufferString(`{"email":""}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"email missing"}`, body)

	code, body = env.do(t, http.MethodPost, "/api/v1/auth_session/login", bytes.NewBufferString(`{"email":"nobody@example.com"}`))
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"no user found for this email"}`, body)
}

func TestRouter_DeletedUserIsForbidden(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())

	id, err := env.strategy.CreateSession(context.Background(), "deleted-user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: env.strategy.CookieName(), Value: id})
	rr := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, rr.Body.String())
}

func TestRouter_ExpiredSessionIsForbidden(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := session.NewExpiringStore(session.NewMemoryStore(session.WithClock(clock)), time.Minute, session.WithClock(clock))
	env := newTestEnv(t, store)

	id, err := env.strategy.CreateSession(context.Background(), "u1")
	require.NoError(t, err)

	serve := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.AddCookie(&http.Cookie{Name: env.strategy.CookieName(), Value: id})
		rr := httptest.NewRecorder()
		env.server.Config.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, serve())
	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusForbidden, serve())
}

func TestRouter_LogoutUnknownSession(t *testing.T) {
	env := newTestEnv(t, session.NewMemoryStore())
	id, err := env.strategy.CreateSession(context.Background(), "u1")
	require.NoError(t, err)

	h := env.server.Config.Handler
	logout := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth_session/logout", nil)
		req.AddCookie(&http.Cookie{Name: env.strategy.CookieName(), Value: id})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := logout()
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	// The gate already rejects the stale cookie before logout runs.
	second := logout()
	assert.Equal(t, http.StatusForbidden, second.Code)
}

func TestRouter_NoStrategy(t *testing.T) {
	srv := httptest.NewServer(NewRouter(RouterOptions{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/v1/users/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestRecover_WritesJSON500(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rr.Body.String())
}

func TestHandlers_LogoutUnknownSessionIs404(t *testing.T) {
	strategy, err := service.NewSessionAuth(service.SessionAuthOptions{
		Store: session.NewMemoryStore(),
		Users: mockauth.NewMemoryUserStore(),
	})
	require.NoError(t, err)
	h := &Handlers{Sessions: strategy, Logger: testLogger()}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth_session/logout", nil)
	req.AddCookie(&http.Cookie{Name: strategy.CookieName(), Value: "unknown"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
}

func TestHandlers_StoreFaultsMapTo5xx(t *testing.T) {
	alice := domainauth.User{ID: "u1", Email: "alice@example.com"}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unreachable", err: &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: "database unavailable"}, wantStatus: http.StatusServiceUnavailable},
		{name: "timeout", err: &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "redis operation timed out"}, wantStatus: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockSessionStore(ctrl)
			store.EXPECT().Create(gomock.Any(), alice.ID).Return(domainauth.Session{}, tt.err)

			strategy, err := service.NewSessionAuth(service.SessionAuthOptions{
				Store: store,
				Users: mockauth.NewMemoryUserStore(alice),
			})
			require.NoError(t, err)
			h := &Handlers{Sessions: strategy, Users: strategy.Users(), Logger: testLogger()}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth_session/login", strings.NewReader("email=alice@example.com"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			h.Login(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Empty(t, rr.Result().Cookies())
		})
	}
}
