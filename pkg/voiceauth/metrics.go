package voiceauth

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

const namespace = "voxkey"

// Metrics holds the Prometheus collectors of the pipelines and the HTTP
// handler. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Enrollments       *prometheus.CounterVec
	EnrollDuration    prometheus.Histogram
	Verifications     *prometheus.CounterVec
	VerifyDuration    prometheus.Histogram
	Similarity        prometheus.Histogram
	RecordingFailures *prometheus.CounterVec
	ExtractDuration   prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Enrollment calls by result code (\"ok\" on success).",
		}, []string{"code"}),
		EnrollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enroll_duration_seconds",
			Help:      "Enrollment wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification calls by outcome (accepted, rejected or an error code).",
		}, []string{"outcome"}),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_duration_seconds",
			Help:      "Verification wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		Similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_similarity",
			Help:      "Cosine similarity of completed verifications.",
			Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
		}),
		RecordingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enroll_recording_failures_total",
			Help:      "Enrollment recordings skipped, by error code.",
		}, []string{"code"}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Model extraction time per recording in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path_pattern", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Enrollments,
			m.EnrollDuration,
			m.Verifications,
			m.VerifyDuration,
			m.Similarity,
			m.RecordingFailures,
			m.ExtractDuration,
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
		)
	}
	return m
}

func (m *Metrics) observeEnroll(err error, d time.Duration) {
	if m == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = Code(err)
	}
	m.Enrollments.WithLabelValues(code).Inc()
	m.EnrollDuration.Observe(d.Seconds())
}

func (m *Metrics) observeVerify(r voiceprint.Result, err error, d time.Duration) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.Verifications.WithLabelValues(Code(err)).Inc()
	case r.Accepted:
		m.Verifications.WithLabelValues("accepted").Inc()
	default:
		m.Verifications.WithLabelValues("rejected").Inc()
	}
	if err == nil {
		m.Similarity.Observe(r.Similarity)
	}
	if d > 0 {
		m.VerifyDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) recordingFailed(err error) {
	if m == nil {
		return
	}
	m.RecordingFailures.WithLabelValues(Code(err)).Inc()
}

func (m *Metrics) observeExtract(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Observe(d.Seconds())
}

// instrument returns middleware that records HTTP request metrics.
// It uses chi's route pattern as the path label to avoid cardinality explosion.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		pattern := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
