package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"signature-web-server/internal/model"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// BuildStats : статистика за последние days дней по уже отобранным в scope данным.
// daily_activity содержит каждый день окна, включая дни без событий
func BuildStats(now time.Time, days int, logs []model.AuditLog, documents []model.Document, requests []model.SignatureRequest) *model.AuditStats {
	now = now.UTC()
	since := now.AddDate(0, 0, -days)

	stats := &model.AuditStats{
		PeriodDays:     days,
		TotalDocuments: len(documents),
		ActionTypes:    map[string]int{},
	}

	daily := map[string]int{}
	for _, entry := range logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		stats.TotalLogs++
		stats.ActionTypes[string(entry.ActionType)]++
		daily[entry.Timestamp.UTC().Format(dayLayout)]++
	}

	for _, document := range documents {
		if !document.CreatedAt.Before(since) {
			stats.DocumentsUploaded++
		}
		if document.IsSigned() && !document.UpdatedAt.Before(since) {
			stats.DocumentsSigned++
		}
	}

	for _, request := range requests {
		if request.SentAt.Before(since) {
			continue
		}
		stats.SignatureRequestsSent++
		if request.Status == model.RequestSigned {
			stats.SignatureRequestsCompleted++
		}
	}

	first := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	for day := first; !day.After(now); day = day.AddDate(0, 0, 1) {
		date := day.Format(dayLayout)
		stats.DailyActivity = append(stats.DailyActivity, model.DailyActivity{Date: date, Count: daily[date]})
	}
	return stats
}

// BuildTimeline : записи журнала и события запросов на подпись по возрастанию времени.
// Запись без времени считается самой ранней, равные сохраняют исходный порядок
func BuildTimeline(logs []model.AuditLog, requests []model.SignatureRequest) []model.TimelineEntry {
	timeline := make([]model.TimelineEntry, 0, len(logs)+2*len(requests))

	for i := range logs {
		entry := logs[i]
		timeline = append(timeline, model.TimelineEntry{
			Type:      model.TimelineAuditLog,
			Timestamp: &entry.Timestamp,
			Action:    string(entry.ActionType),
			Details:   stringValue(entry.Details),
			UserUUID:  entry.UserUUID,
			IPAddress: entry.IPAddress,
		})
	}

	for i := range requests {
		request := requests[i]
		timeline = append(timeline, model.TimelineEntry{
			Type:      model.TimelineSignatureRequest,
			Timestamp: &request.SentAt,
			Action:    "signature_request_sent",
			Details:   fmt.Sprintf("запрос на подпись отправлен %s", request.SignerEmail),
			Data: map[string]any{
				"request_id":     request.UUID,
				"signer_email":   request.SignerEmail,
				"signature_type": request.SignatureType,
				"status":         request.Status,
			},
		})

		if request.SignedAt != nil {
			timeline = append(timeline, model.TimelineEntry{
				Type:      model.TimelineSignatureCompleted,
				Timestamp: request.SignedAt,
				Action:    "document_signed",
				Details:   fmt.Sprintf("документ подписан %s", request.SignerEmail),
				IPAddress: request.IPAddress,
				Data: map[string]any{
					"request_id":   request.UUID,
					"signer_email": request.SignerEmail,
					"geolocation":  request.Geolocation,
				},
			})
		}
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timelineTime(timeline[i]).Before(timelineTime(timeline[j]))
	})
	return timeline
}

func timelineTime(entry model.TimelineEntry) time.Time {
	if entry.Timestamp == nil || entry.Timestamp.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return *entry.Timestamp
}

var auditCSVHeader = []string{"ID", "Timestamp", "Action Type", "User ID", "Document ID", "IP Address", "Details"}

// WriteAuditCSV : заголовок и по строке на запись
func WriteAuditCSV(w io.Writer, logs []model.AuditLog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(auditCSVHeader); err != nil {
		return err
	}
	for _, entry := range logs {
		record := []string{
			entry.UUID,
			entry.Timestamp.UTC().Format(time.RFC3339),
			string(entry.ActionType),
			stringValue(entry.UserUUID),
			stringValue(entry.DocumentUUID),
			stringValue(entry.IPAddress),
			stringValue(entry.Details),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ExportFilename(t time.Time) string {
	return fmt.Sprintf("audit_logs_%s.csv", t.UTC().Format("20060102_150405"))
}
