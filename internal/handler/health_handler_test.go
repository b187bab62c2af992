package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"signature-web-server/internal/handler"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealth(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]handler.Pinger
		wantStatus int
		wantBody   string
	}{
		{
			name:       "все зависимости доступны",
			checks:     map[string]handler.Pinger{"database": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`,
		},
		{
			name:       "redis недоступен",
			checks:     map[string]handler.Pinger{"database": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"degraded","checks":{"database":"ok","redis":"connection refused"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Health(tt.checks, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
