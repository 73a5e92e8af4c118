package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/sessionauth/internal/errors"
)

func TestRecorder_GateDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.GateDecision(OutcomeUnauthorized)
	rec.GateDecision(OutcomeUnauthorized)
	rec.GateDecision(OutcomePass)

	assert.InDelta(t, 2, testutil.ToFloat64(rec.gateDecisions.WithLabelValues(OutcomeUnauthorized)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.gateDecisions.WithLabelValues(OutcomePass)), 0)
}

func TestRecorder_ReaperRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.ReaperRun(3, nil)
	rec.ReaperRun(0, nil)
	rec.ReaperRun(0, errors.New("boom"))
	rec.ReaperRun(0, fmt.Errorf("purge sessions: %w", &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: "database unavailable"}))

	assert.InDelta(t, 3, testutil.ToFloat64(rec.reaperPurged), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.reaperRuns.WithLabelValues(ResultSuccess, "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.reaperRuns.WithLabelValues(ResultNoop, "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.reaperRuns.WithLabelValues(ResultError, "errors_errorstring")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.reaperRuns.WithLabelValues(ResultError, "unavailable")), 0)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.GateDecision(OutcomePass)
		rec.SessionCreated()
		rec.SessionsDestroyed(2)
		rec.ReaperRun(1, nil)
		rec.ObserveRequest(http.MethodGet, http.StatusOK, 0)
	})
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)
	rec.SessionCreated()

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sessionauth_sessions_created_total 1")
}

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "canceled", err: fmt.Errorf("purge: %w", context.Canceled), want: "context"},
		{name: "wrapped custom", err: fmt.Errorf("outer: %w", customErr{}), want: "metrics_customerr"},
		{name: "pointer", err: &customErr{}, want: "metrics_customerr"},
		{name: "app error code", err: fmt.Errorf("search: %w", &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Cause: context.DeadlineExceeded}), want: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
