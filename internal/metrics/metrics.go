package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics : счётчики сервиса подписи
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	DocumentsUploaded   prometheus.Counter
	UploadBytes         prometheus.Counter
	RequestsCreated     *prometheus.CounterVec
	SignaturesCompleted *prometheus.CounterVec
	SignaturesFailed    *prometheus.CounterVec
	Verifications       *prometheus.CounterVec
	RateLimited         *prometheus.CounterVec
}

// New : регистрирует метрики в reg (prometheus.DefaultRegisterer в main)
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signature_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "signature_documents_uploaded_total",
			Help: "Documents accepted by upload",
		}),
		UploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "signature_upload_bytes_total",
			Help: "Bytes stored by document uploads",
		}),
		RequestsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_requests_created_total",
			Help: "Signature requests created by signature type",
		}, []string{"type"}),
		SignaturesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_signatures_completed_total",
			Help: "Signature requests moved to signed",
		}, []string{"type"}),
		SignaturesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_signatures_failed_total",
			Help: "Failed sign attempts by error code",
		}, []string{"reason"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_verifications_total",
			Help: "Public verifications by file integrity result",
		}, []string{"integrity"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signature_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
	}
}

func (m *Metrics) IncDocumentsUploaded(size int64) {
	m.DocumentsUploaded.Inc()
	m.UploadBytes.Add(float64(size))
}

func (m *Metrics) IncRequestCreated(signatureType string) {
	m.RequestsCreated.WithLabelValues(signatureType).Inc()
}

func (m *Metrics) IncSignatureCompleted(signatureType string) {
	m.SignaturesCompleted.WithLabelValues(signatureType).Inc()
}

func (m *Metrics) IncSignatureFailed(reason string) {
	m.SignaturesFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncVerification(integrity bool) {
	m.Verifications.WithLabelValues(strconv.FormatBool(integrity)).Inc()
}

func (m *Metrics) IncRateLimited(route string) {
	m.RateLimited.WithLabelValues(route).Inc()
}

// Middleware : маршрут берётся из шаблона chi, чтобы id не раздували кардинальность
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
