package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"signature-web-server/internal/handler"
	"signature-web-server/internal/metrics"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name        string
		allowed     bool
		err         error
		wantStatus  int
		wantLimited float64
	}{
		{name: "в пределах лимита", allowed: true, wantStatus: http.StatusNoContent},
		{name: "лимит превышен", allowed: false, wantStatus: http.StatusTooManyRequests, wantLimited: 1},
		{name: "redis недоступен", err: errors.New("connection refused"), wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			limiter := new(MockRateLimiter)
			limiter.On("Allow", mock.Anything, "login:198.51.100.7").Return(tt.allowed, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			req.Header.Set("X-Forwarded-For", "198.51.100.7")
			rec := httptest.NewRecorder()
			handler.RateLimit(limiter, m, "login")(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimited, testutil.ToFloat64(m.RateLimited.WithLabelValues("login")))
			limiter.AssertExpectations(t)
		})
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	req := httptest.NewRequest(http.MethodGet, "/api/documents?page=2", nil)
	rec := httptest.NewRecorder()
	handler.AccessLog(zap.New(core))(okHandler()).ServeHTTP(rec, req)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(http.StatusNoContent), fields["status"])
		assert.Equal(t, "/api/documents", fields["path"])
		assert.Equal(t, "page=2", fields["query"])
		assert.Equal(t, "192.0.2.1", fields["ip"])
	}
}
