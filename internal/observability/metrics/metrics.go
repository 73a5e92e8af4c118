// Package metrics exposes the Prometheus collectors for the session auth layer.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/target/sessionauth/internal/errors"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Gate outcomes.
const (
	OutcomePass         = "pass"
	OutcomeExcluded     = "excluded"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeError        = "error"
)

const namespace = "sessionauth"

// Recorder holds the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	gateDecisions     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	reaperRuns        *prometheus.CounterVec
	reaperPurged      prometheus.Counter
	reaperLastSuccess prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Request gate decisions by outcome",
		}, []string{"outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),

		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions issued",
		}),

		sessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_destroyed_total",
			Help:      "Sessions destroyed on logout or revocation",
		}),

		reaperRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "runs_total",
			Help:      "Expired-session purge runs by result",
		}, []string{"result", "error_class"}),

		reaperPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed by the reaper",
		}),

		reaperLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "last_success_epoch_seconds",
			Help:      "Unix time of the last successful purge run",
		}),
	}
}

// GateDecision counts one request gate outcome.
func (r *Recorder) GateDecision(outcome string) {
	if r == nil {
		return
	}
	r.gateDecisions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records the duration of a served request.
func (r *Recorder) ObserveRequest(method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, statusClass(status)).Observe(elapsed.Seconds())
}

// SessionCreated counts an issued session.
func (r *Recorder) SessionCreated() {
	if r == nil {
		return
	}
	r.sessionsCreated.Inc()
}

// SessionsDestroyed counts n destroyed sessions.
func (r *Recorder) SessionsDestroyed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sessionsDestroyed.Add(float64(n))
}

// ReaperRun records the result of one purge run.
func (r *Recorder) ReaperRun(purged int64, err error) {
	if r == nil {
		return
	}

	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case purged == 0:
		result = ResultNoop
	}
	r.reaperRuns.WithLabelValues(result, ClassifyError(err)).Inc()

	if err != nil {
		return
	}
	if purged > 0 {
		r.reaperPurged.Add(float64(purged))
	}
	r.reaperLastSuccess.SetToCurrentTime()
}

// Handler serves the collectors gathered by g. A nil g uses the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ClassifyError returns a normalized error class suitable for metric labels.
// Application errors report their code; anything else unwraps to the innermost
// error and snake-cases its concrete type.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "context"
	}

	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
