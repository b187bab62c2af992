package handler

import (
	"net/http"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLog : одна строка лога на запрос
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("HTTP запрос",
				zap.Int("status", ww.Status()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("ip", security.ClientIP(r)),
				zap.String("user_agent", r.UserAgent()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("latency", time.Since(start)),
				zap.Int("size", ww.BytesWritten()),
			)
		})
	}
}

// RateLimit : ключ из маршрута и IP клиента. При недоступном Redis запрос пропускается
func RateLimit(limiter ports.RateLimiter, m *metrics.Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), route+":"+security.ClientIP(r))
			if err != nil {
				zap.L().Warn("лимитер недоступен, запрос пропущен", zap.String("route", route), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if m != nil {
					m.IncRateLimited(route)
				}
				util.WriteServiceError(w, model.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
