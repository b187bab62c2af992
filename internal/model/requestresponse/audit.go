package requestresponse

import "signature-web-server/internal/model"

// AuditLogResponse : запись журнала аудита
type AuditLogResponse struct {
	UUID         string  `json:"id" example:"7e6d5c4b-3a2f-1e0d-9c8b-7a6f5e4d3c2b"`
	DocumentUUID *string `json:"document_id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
	UserUUID     *string `json:"user_id" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	ActionType   string  `json:"action_type" example:"document_uploaded"`
	Category     string  `json:"category" example:"document"`
	Details      *string `json:"details" example:"filename=contract.pdf size=48213"`
	IPAddress    *string `json:"ip_address" example:"203.0.113.9"`
	Timestamp    string  `json:"timestamp" example:"2025-08-23T12:34:56Z"`
}

func AuditLogResponseFromModel(entry *model.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		UUID:         entry.UUID,
		DocumentUUID: entry.DocumentUUID,
		UserUUID:     entry.UserUUID,
		ActionType:   string(entry.ActionType),
		Category:     string(entry.ActionType.Category()),
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		Timestamp:    formatTime(entry.Timestamp),
	}
}

func AuditLogResponsesFromModel(logs []model.AuditLog) []AuditLogResponse {
	resp := make([]AuditLogResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, AuditLogResponseFromModel(&logs[i]))
	}
	return resp
}

// AuditLogsResponse : страница журнала
type AuditLogsResponse struct {
	Logs    []AuditLogResponse `json:"logs"`
	Total   int                `json:"total" example:"120"`
	Page    int                `json:"page" example:"1"`
	PerPage int                `json:"per_page" example:"50"`
	Pages   int                `json:"pages" example:"3"`
}

func AuditLogsResponseFromModel(page *model.AuditPage) AuditLogsResponse {
	return AuditLogsResponse{
		Logs:    AuditLogResponsesFromModel(page.Logs),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.Pages,
	}
}

// AuditLogEnvelope : одна запись журнала
type AuditLogEnvelope struct {
	Log AuditLogResponse `json:"log"`
}

// AuditStatsResponse : статистика за период
type AuditStatsResponse struct {
	Stats model.AuditStats `json:"stats"`
}

// TimelineResponse : хронология документа
type TimelineResponse struct {
	DocumentUUID string                `json:"document_id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
	Timeline     []model.TimelineEntry `json:"timeline"`
}

// IntegrityCheckRequest : пустой список означает все подписанные документы в зоне видимости
type IntegrityCheckRequest struct {
	DocumentIDs []string `json:"document_ids" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
}

// IntegrityCheckResponse : результат проверки целостности
type IntegrityCheckResponse struct {
	IntegrityResults []model.IntegrityResult `json:"integrity_results"`
	Summary          model.IntegritySummary  `json:"summary"`
}

func IntegrityCheckResponseFromModel(report *model.IntegrityReport) IntegrityCheckResponse {
	results := report.Results
	if results == nil {
		results = []model.IntegrityResult{}
	}
	return IntegrityCheckResponse{IntegrityResults: results, Summary: report.Summary}
}

// SettingsResponse : все настройки
type SettingsResponse struct {
	Settings []model.Setting `json:"settings"`
}

// UpdateSettingRequest : новое значение настройки
type UpdateSettingRequest struct {
	Value string `json:"value" example:"10"`
}

// SettingEnvelope : одна настройка
type SettingEnvelope struct {
	Setting *model.Setting `json:"setting"`
}
