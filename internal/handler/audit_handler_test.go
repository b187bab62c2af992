package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"signature-web-server/internal/handler"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditHandler_ListLogs_Filter(t *testing.T) {
	action := model.ActionDocumentUploaded
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 12, 30, 0, 0, time.UTC)

	auditService := new(MockAuditService)
	auditService.On("ListLogs", mock.Anything, ownerActor, model.AuditFilter{
		ActionType:   &action,
		DocumentUUID: "doc-1",
		Start:        &start,
		End:          &end,
	}, 2, 10).Return(&model.AuditPage{
		Logs:    []model.AuditLog{{UUID: "log-1", ActionType: action, Timestamp: start}},
		Total:   11,
		Page:    2,
		PerPage: 10,
		Pages:   2,
	}, nil)
	h := handler.NewAuditHandler(auditService)

	url := "/api/audit/logs?action_type=document_uploaded&document_id=doc-1&start_date=2025-03-01&end_date=2025-03-02T12:30:00Z&page=2&per_page=10"
	rec := httptest.NewRecorder()
	h.ListLogs(rec, withClaims(httptest.NewRequest(http.MethodGet, url, nil), "owner-1", false))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp requestresponse.AuditLogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 11, resp.Total)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "document", resp.Logs[0].Category)
}

func TestAuditHandler_ListLogs_BadQuery(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "неизвестное действие", url: "/api/audit/logs?action_type=document_exploded"},
		{name: "некорректная дата", url: "/api/audit/logs?start_date=yesterday"},
		{name: "нечисловая страница", url: "/api/audit/logs?page=first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditService := new(MockAuditService)
			h := handler.NewAuditHandler(auditService)

			rec := httptest.NewRecorder()
			h.ListLogs(rec, withClaims(httptest.NewRequest(http.MethodGet, tt.url, nil), "owner-1", false))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			auditService.AssertNotCalled(t, "ListLogs", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuditHandler_Export(t *testing.T) {
	csv := "ID,Timestamp,Action Type,User ID,Document ID,IP Address,Details\nlog-1,2025-03-01T10:00:00Z,user_login,user-1,,10.0.0.1,\n"
	auditService := new(MockAuditService)
	auditService.On("Export", mock.Anything, ownerActor, model.AuditFilter{}).Return(csv, nil)
	h := handler.NewAuditHandler(auditService)

	rec := httptest.NewRecorder()
	h.Export(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/audit/export", nil), "owner-1", false))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename=audit_logs_\d{8}_\d{6}\.csv$`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, csv, rec.Body.String())
}

func TestAuditHandler_Export_ErrorIsJSON(t *testing.T) {
	auditService := new(MockAuditService)
	auditService.On("Export", mock.Anything, ownerActor, model.AuditFilter{DocumentUUID: "doc-x"}).
		Return("", model.Errorf(model.ErrNotFound, "документ не найден"))
	h := handler.NewAuditHandler(auditService)

	rec := httptest.NewRecorder()
	h.Export(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/audit/export?document_id=doc-x", nil), "owner-1", false))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestAuditHandler_Timeline(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	auditService := new(MockAuditService)
	auditService.On("Timeline", mock.Anything, ownerActor, "doc-1").Return([]model.TimelineEntry{
		{Type: model.TimelineAuditLog, Timestamp: &t1, Action: "document_uploaded"},
		{Type: model.TimelineSignatureCompleted, Timestamp: &t2, Action: "document_signed"},
	}, nil)
	h := handler.NewAuditHandler(auditService)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/audit/document/doc-1/timeline", nil), "owner-1", false)
	rec := serve(http.MethodGet, "/api/audit/document/{id}/timeline", h.Timeline, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp requestresponse.TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.DocumentUUID)
	require.Len(t, resp.Timeline, 2)
	assert.Equal(t, "document_signed", resp.Timeline[1].Action)
}

func TestAuditHandler_IntegrityCheck(t *testing.T) {
	auditService := new(MockAuditService)
	auditService.On("IntegrityCheck", mock.Anything, ownerActor, []string(nil)).Return(&model.IntegrityReport{
		Summary: model.IntegritySummary{},
	}, nil)
	auditService.On("IntegrityCheck", mock.Anything, ownerActor, []string{"doc-1"}).Return(&model.IntegrityReport{
		Results: []model.IntegrityResult{{DocumentUUID: "doc-1", Status: model.IntegrityValid, IntegrityValid: true, FileExists: true}},
		Summary: model.IntegritySummary{TotalChecked: 1, Valid: 1},
	}, nil)
	h := handler.NewAuditHandler(auditService)

	rec := httptest.NewRecorder()
	h.IntegrityCheck(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/audit/integrity-check", nil), "owner-1", false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"integrity_results":[],"summary":{"total_checked":0,"valid":0,"invalid":0,"missing_files":0}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.IntegrityCheck(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/audit/integrity-check",
		strings.NewReader(`{"document_ids":["doc-1"]}`)), "owner-1", false))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp requestresponse.IntegrityCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Valid)
}

func TestAuditHandler_Stats_OutOfRange(t *testing.T) {
	auditService := new(MockAuditService)
	auditService.On("Stats", mock.Anything, ownerActor, 400).
		Return(nil, model.Errorf(model.ErrValidation, "days должен быть от 1 до 365"))
	h := handler.NewAuditHandler(auditService)

	rec := httptest.NewRecorder()
	h.Stats(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/audit/stats?days=400", nil), "owner-1", false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandler_UpdateSetting(t *testing.T) {
	admin := model.Actor{UserUUID: "admin-1", IsAdmin: true, IP: "192.0.2.1"}
	settingsService := new(MockSettingsService)
	settingsService.On("Update", mock.Anything, admin, "free_documents_limit", "10").
		Return(&model.Setting{ID: 1, Key: "free_documents_limit", Value: "10"}, nil)
	h := handler.NewSettingsHandler(settingsService)

	req := withClaims(httptest.NewRequest(http.MethodPut, "/api/admin/settings/free_documents_limit",
		strings.NewReader(`{"value":"10"}`)), "admin-1", true)
	rec := serve(http.MethodPut, "/api/admin/settings/{key}", h.UpdateSetting, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"setting":{"id":1,"key":"free_documents_limit","value":"10"}}`, rec.Body.String())
}
