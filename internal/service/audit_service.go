package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"time"
)

type AuditService struct {
	tx        ports.Transactor
	auditRepo ports.AuditRepository
	documents ports.DocumentRepository
	requests  ports.SignatureRepository
	storage   ports.ArtifactStorage
	audit     auditor
	now       func() time.Time
}

func NewAuditService(
	tx ports.Transactor,
	auditRepository ports.AuditRepository,
	documents ports.DocumentRepository,
	requests ports.SignatureRepository,
	artifactStorage ports.ArtifactStorage,
) *AuditService {
	return &AuditService{
		tx:        tx,
		auditRepo: auditRepository,
		documents: documents,
		requests:  requests,
		storage:   artifactStorage,
		audit:     auditor{repo: auditRepository, tx: tx},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListLogs : администратор видит весь журнал, пользователь свои записи и записи по своим документам
func (s *AuditService) ListLogs(ctx context.Context, actor model.Actor, filter model.AuditFilter, page, perPage int) (*model.AuditPage, error) {
	if err := s.checkFilter(ctx, actor, filter); err != nil {
		return nil, err
	}
	page, perPage = pagination(page, perPage, 50, 200)

	logs, total, err := s.auditRepo.List(ctx, s.tx.Executor(), model.ScopeFor(actor), filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	return &model.AuditPage{
		Logs:    logs,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   model.Pages(total, perPage),
	}, nil
}

// checkFilter : диапазон дат и доступ к документу из фильтра
func (s *AuditService) checkFilter(ctx context.Context, actor model.Actor, filter model.AuditFilter) error {
	if filter.Start != nil && filter.End != nil && filter.Start.After(*filter.End) {
		return model.Errorf(model.ErrValidation, "начало периода позже его конца")
	}
	if filter.DocumentUUID == "" {
		return nil
	}
	_, err := s.authorizedDocument(ctx, actor, filter.DocumentUUID, "audit_logs")
	return err
}

func (s *AuditService) authorizedDocument(ctx context.Context, actor model.Actor, documentUUID, operation string) (*model.Document, error) {
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, operation); err != nil {
		return nil, err
	}
	return document, nil
}

func (s *AuditService) GetLog(ctx context.Context, actor model.Actor, logUUID string) (*model.AuditLog, error) {
	entry, err := s.auditRepo.GetByUUID(ctx, s.tx.Executor(), logUUID)
	if err != nil {
		return nil, notFound(err, "запись журнала не найдена")
	}
	if actor.IsAdmin || stringValue(entry.UserUUID) == actor.UserUUID {
		return entry, nil
	}

	if entry.DocumentUUID != nil {
		document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), *entry.DocumentUUID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		if document != nil && document.OwnerUUID == actor.UserUUID {
			return entry, nil
		}
	}
	return nil, model.Errorf(model.ErrForbidden, "нет доступа к записи журнала")
}

// Stats : три выборки читаются в одной read-only транзакции, подсчёт в BuildStats
func (s *AuditService) Stats(ctx context.Context, actor model.Actor, days int) (*model.AuditStats, error) {
	if days == 0 {
		days = 30
	}
	if days < 1 || days > 365 {
		return nil, model.Errorf(model.ErrValidation, "период должен быть от 1 до 365 дней")
	}

	now := s.now()
	since := now.AddDate(0, 0, -days)
	scope := model.ScopeFor(actor)

	exec, rollback, commit, err := s.tx.BeginReadOnlyTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	logs, err := s.auditRepo.ListByScopeSince(ctx, exec, scope, since)
	if err != nil {
		return nil, err
	}
	documents, err := s.documents.ListByScope(ctx, exec, scope)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByScopeSince(ctx, exec, scope, since)
	if err != nil {
		return nil, err
	}
	if err := commit(); err != nil {
		return nil, err
	}

	return BuildStats(now, days, logs, documents, requests), nil
}

// Export : CSV по тем же фильтрам, что и ListLogs, без пагинации
func (s *AuditService) Export(ctx context.Context, actor model.Actor, filter model.AuditFilter, w io.Writer) error {
	if err := s.checkFilter(ctx, actor, filter); err != nil {
		return err
	}

	logs, err := s.auditRepo.ListAll(ctx, s.tx.Executor(), model.ScopeFor(actor), filter)
	if err != nil {
		return err
	}
	if err := WriteAuditCSV(w, logs); err != nil {
		return fmt.Errorf("[AuditService] ошибка записи CSV: %w", err)
	}
	return nil
}

func (s *AuditService) Timeline(ctx context.Context, actor model.Actor, documentUUID string) ([]model.TimelineEntry, error) {
	document, err := s.authorizedDocument(ctx, actor, documentUUID, "timeline")
	if err != nil {
		return nil, err
	}

	logs, err := s.auditRepo.ListByDocument(ctx, s.tx.Executor(), document.UUID)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByDocument(ctx, s.tx.Executor(), document.UUID)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(logs, requests), nil
}

// IntegrityCheck : пересчёт хэшей подписанных документов scope.
// Пустой documentUUIDs означает все подписанные документы
func (s *AuditService) IntegrityCheck(ctx context.Context, actor model.Actor, documentUUIDs []string) (*model.IntegrityReport, error) {
	documents, err := s.documents.ListSignedByScope(ctx, s.tx.Executor(), model.ScopeFor(actor), documentUUIDs)
	if err != nil {
		return nil, err
	}

	report := &model.IntegrityReport{Results: make([]model.IntegrityResult, 0, len(documents))}
	for i := range documents {
		result := s.checkDocument(ctx, &documents[i])
		report.Results = append(report.Results, result)

		report.Summary.TotalChecked++
		switch result.Status {
		case model.IntegrityValid:
			report.Summary.Valid++
		case model.IntegrityInvalid:
			report.Summary.Invalid++
		case model.IntegrityMissing:
			report.Summary.MissingFiles++
		}
	}

	details := fmt.Sprintf("checked=%d valid=%d invalid=%d missing=%d",
		report.Summary.TotalChecked, report.Summary.Valid, report.Summary.Invalid, report.Summary.MissingFiles)
	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionIntegrityCheckPerformed, actor.UserUUID, "", details, actor.IP))
	return report, nil
}

func (s *AuditService) checkDocument(ctx context.Context, document *model.Document) model.IntegrityResult {
	result := model.IntegrityResult{
		DocumentUUID: document.UUID,
		Filename:     document.Filename,
		StoredHash:   document.Sha256Hash,
	}
	if document.SignedPath == nil {
		result.Status = model.IntegrityMissing
		return result
	}

	currentHash, err := hashArtifact(ctx, s.storage, *document.SignedPath)
	switch {
	case errors.Is(err, model.ErrNotFound):
		result.Status = model.IntegrityMissing
	case err != nil:
		result.Status = model.IntegrityError
		result.FileExists = true
		result.Error = err.Error()
	default:
		result.FileExists = true
		result.CurrentHash = &currentHash
		result.IntegrityValid = document.Sha256Hash != nil && currentHash == *document.Sha256Hash
		result.Status = model.IntegrityInvalid
		if result.IntegrityValid {
			result.Status = model.IntegrityValid
		}
	}
	return result
}
