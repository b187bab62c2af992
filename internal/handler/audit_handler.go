package handler

import (
	"bytes"
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/service"
	"signature-web-server/internal/util"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuditHandler struct {
	ports.AuditService
	now func() time.Time
}

func NewAuditHandler(auditService ports.AuditService) *AuditHandler {
	return &AuditHandler{AuditService: auditService, now: time.Now}
}

// auditFilter : action_type, document_id, start_date, end_date из query
func auditFilter(r *http.Request) (model.AuditFilter, error) {
	query := r.URL.Query()

	action, err := model.ParseAuditAction(strings.TrimSpace(query.Get("action_type")))
	if err != nil {
		return model.AuditFilter{}, err
	}
	start, err := queryTime(r, "start_date")
	if err != nil {
		return model.AuditFilter{}, err
	}
	end, err := queryTime(r, "end_date")
	if err != nil {
		return model.AuditFilter{}, err
	}

	return model.AuditFilter{
		ActionType:   action,
		DocumentUUID: strings.TrimSpace(query.Get("document_id")),
		Start:        start,
		End:          end,
	}, nil
}

// ListLogs godoc
// @Summary Журнал аудита
// @Description Записи, где пользователь автор или владелец документа. Администратор видит весь журнал
// @Tags Audit
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Страница" default(1)
// @Param per_page query int false "Размер страницы" default(50)
// @Param action_type query string false "Тип действия"
// @Param document_id query string false "UUID документа"
// @Param start_date query string false "Начало периода (RFC 3339 или YYYY-MM-DD)"
// @Param end_date query string false "Конец периода (RFC 3339 или YYYY-MM-DD)"
// @Success 200 {object} requestresponse.AuditLogsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/logs [get]
func (h *AuditHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	filter, err := auditFilter(r)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	logs, err := h.AuditService.ListLogs(r.Context(), actor, filter, page, perPage)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.AuditLogsResponseFromModel(logs))
}

// GetLog godoc
// @Summary Запись журнала аудита
// @Tags Audit
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID записи"
// @Success 200 {object} requestresponse.AuditLogEnvelope
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/logs/{id} [get]
func (h *AuditHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	entry, err := h.AuditService.GetLog(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.AuditLogEnvelope{Log: requestresponse.AuditLogResponseFromModel(entry)})
}

// Stats godoc
// @Summary Статистика аудита
// @Description Счётчики за последние days дней и активность по дням
// @Tags Audit
// @Produce json
// @Security ApiKeyAuth
// @Param days query int false "Период в днях (1..365)" default(30)
// @Success 200 {object} requestresponse.AuditStatsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/stats [get]
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	days, err := queryInt(r, "days")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	stats, err := h.AuditService.Stats(r.Context(), actor, days)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.AuditStatsResponse{Stats: *stats})
}

// Export godoc
// @Summary Экспорт журнала в CSV
// @Description Те же фильтры, что у списка, без пагинации
// @Tags Audit
// @Produce text/csv
// @Security ApiKeyAuth
// @Param action_type query string false "Тип действия"
// @Param document_id query string false "UUID документа"
// @Param start_date query string false "Начало периода"
// @Param end_date query string false "Конец периода"
// @Success 200 {file} file
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/export [get]
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	filter, err := auditFilter(r)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	// буфер, чтобы ошибка выборки ещё могла уйти JSON ответом
	var buf bytes.Buffer
	if err := h.AuditService.Export(r.Context(), actor, filter, &buf); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition("attachment", service.ExportFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("ошибка передачи CSV клиенту", zap.Error(err))
	}
}

// Timeline godoc
// @Summary Хронология документа
// @Description Записи журнала и события запросов подписи в порядке времени
// @Tags Audit
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {object} requestresponse.TimelineResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/document/{id}/timeline [get]
func (h *AuditHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	documentUUID := chi.URLParam(r, "id")
	timeline, err := h.AuditService.Timeline(r.Context(), actor, documentUUID)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}
	if timeline == nil {
		timeline = []model.TimelineEntry{}
	}

	writeJSON(w, http.StatusOK, requestresponse.TimelineResponse{DocumentUUID: documentUUID, Timeline: timeline})
}

// IntegrityCheck godoc
// @Summary Проверка целостности
// @Description Пересчитывает хэши подписанных документов. Пустой список document_ids проверяет все доступные
// @Tags Audit
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body requestresponse.IntegrityCheckRequest false "UUID документов"
// @Success 200 {object} requestresponse.IntegrityCheckResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/audit/integrity-check [post]
func (h *AuditHandler) IntegrityCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.IntegrityCheckRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	report, err := h.AuditService.IntegrityCheck(r.Context(), actor, req.DocumentIDs)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.IntegrityCheckResponseFromModel(report))
}
