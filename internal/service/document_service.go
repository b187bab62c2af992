package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/storage"
	"signature-web-server/internal/util"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sniffLen : сколько байт читается для определения типа файла
const sniffLen = 3072

// allowedMimeTypes : допустимые MIME типы для каждого расширения.
// Сравнение идёт по всей цепочке родителей mimetype, поэтому docx, распознанный как zip, тоже проходит
var allowedMimeTypes = map[string][]string{
	"pdf":  {"application/pdf"},
	"doc":  {"application/msword", "application/x-ole-storage"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

type DocumentService struct {
	tx        ports.Transactor
	documents ports.DocumentRepository
	fields    ports.FieldRepository
	storage   ports.ArtifactStorage
	cache     ports.CacheRepository
	metrics   *metrics.Metrics
	audit     auditor
	maxBytes  int64
}

func NewDocumentService(
	tx ports.Transactor,
	documents ports.DocumentRepository,
	fields ports.FieldRepository,
	auditRepository ports.AuditRepository,
	artifactStorage ports.ArtifactStorage,
	cache ports.CacheRepository,
	m *metrics.Metrics,
	maxBytes int64,
) *DocumentService {
	return &DocumentService{
		tx:        tx,
		documents: documents,
		fields:    fields,
		storage:   artifactStorage,
		cache:     cache,
		metrics:   m,
		audit:     auditor{repo: auditRepository, tx: tx},
		maxBytes:  maxBytes,
	}
}

// Upload : проверяет расширение и содержимое, сохраняет файл и метаданные.
// Если транзакция не прошла, сохранённый файл удаляется
func (s *DocumentService) Upload(ctx context.Context, actor model.Actor, input model.UploadInput) (*model.Document, error) {
	displayName := filepath.Base(strings.ReplaceAll(strings.TrimSpace(input.Filename), "\\", "/"))
	_, ext := util.SplitExtension(displayName)
	if _, ok := storage.AllowedExtensions[ext]; !ok || displayName == "." || displayName == "/" {
		return nil, model.Errorf(model.ErrValidation, "допустимы только файлы PDF, DOC и DOCX")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("[DocumentService] ошибка чтения файла: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, model.Errorf(model.ErrValidation, "файл пустой")
	}

	mtype := mimetype.Detect(head)
	if !mimeAllowed(mtype, ext) {
		zap.L().Info("содержимое не соответствует расширению",
			zap.String("ext", ext), zap.String("detected", mtype.String()))
		return nil, model.Errorf(model.ErrValidation, "содержимое файла не соответствует расширению .%s", ext)
	}

	key, err := storage.OriginalKey(actor.UserUUID, displayName)
	if err != nil {
		return nil, fmt.Errorf("[DocumentService] не удалось сформировать ключ: %w", err)
	}

	content := io.LimitReader(io.MultiReader(bytes.NewReader(head), input.Content), s.maxBytes+1)
	stored, err := s.storage.Save(ctx, key, content)
	if err != nil {
		return nil, fmt.Errorf("[DocumentService] ошибка сохранения файла: %w", err)
	}
	if stored.SizeBytes > s.maxBytes {
		deleteArtifact(ctx, s.storage, stored.Key)
		return nil, model.Errorf(model.ErrValidation, "размер файла превышает %d байт", s.maxBytes)
	}

	document := &model.Document{
		UUID:           uuid.NewString(),
		OwnerUUID:      actor.UserUUID,
		Filename:       displayName,
		MimeType:       mtype.String(),
		SizeBytes:      stored.SizeBytes,
		OriginalPath:   stored.Key,
		OriginalSha256: stored.Sha256,
		Status:         model.DocumentUploaded,
	}

	if err := s.saveUploaded(ctx, actor, document); err != nil {
		deleteArtifact(ctx, s.storage, stored.Key)
		return nil, err
	}

	s.metrics.IncDocumentsUploaded(document.SizeBytes)
	zap.L().Info("документ загружен", zap.String("document", document.UUID), zap.Int64("size", document.SizeBytes))
	return document, nil
}

func (s *DocumentService) saveUploaded(ctx context.Context, actor model.Actor, document *model.Document) error {
	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if err := s.documents.Create(ctx, exec, document); err != nil {
		return err
	}

	details := fmt.Sprintf("filename=%s size=%d", document.Filename, document.SizeBytes)
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionDocumentUploaded, actor.UserUUID, document.UUID, details, actor.IP)); err != nil {
		return err
	}

	if err := commit(); err != nil {
		return util.LogError("[DocumentService] ошибка коммита транзакции", err)
	}
	return nil
}

func mimeAllowed(mtype *mimetype.MIME, ext string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, allowed := range allowedMimeTypes[ext] {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}

// List : обычный пользователь видит только свои документы, All доступен администратору
func (s *DocumentService) List(ctx context.Context, actor model.Actor, filter model.DocumentListFilter) (*model.DocumentPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.Errorf(model.ErrValidation, "неизвестный статус документа: %q", filter.Status)
	}

	filter.Page, filter.PerPage = pagination(filter.Page, filter.PerPage, 20, 100)
	filter.All = filter.All && actor.IsAdmin
	filter.OwnerUUID = actor.UserUUID
	filter.Search = strings.TrimSpace(filter.Search)

	documents, total, err := s.documents.List(ctx, s.tx.Executor(), filter)
	if err != nil {
		return nil, err
	}

	return &model.DocumentPage{
		Documents: documents,
		Total:     total,
		Page:      filter.Page,
		PerPage:   filter.PerPage,
		Pages:     model.Pages(total, filter.PerPage),
	}, nil
}

// Get : метаданные берутся из кэша, при промахе из базы
func (s *DocumentService) Get(ctx context.Context, actor model.Actor, documentUUID string) (*model.DocumentDetails, error) {
	document, err := s.loadDocument(ctx, documentUUID)
	if err != nil {
		return nil, err
	}
	if err := s.audit.authorize(ctx, actor, document, "view"); err != nil {
		return nil, err
	}

	fields, err := s.fields.ListByDocument(ctx, s.tx.Executor(), document.UUID)
	if err != nil {
		return nil, err
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionDocumentAccessed, actor.UserUUID, document.UUID, "", actor.IP))
	return &model.DocumentDetails{Document: document, Fields: fields}, nil
}

func (s *DocumentService) loadDocument(ctx context.Context, documentUUID string) (*model.Document, error) {
	cached, err := s.cache.GetDocument(ctx, documentUUID)
	if err != nil {
		zap.L().Warn("кэш документов недоступен", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}

	if err := s.cache.SetDocument(ctx, document); err != nil {
		zap.L().Warn("не удалось сохранить документ в кэш", zap.Error(err))
	}
	return document, nil
}

// ReplaceFields : заменяет разметку полей целиком. Подписанный документ не меняется
func (s *DocumentService) ReplaceFields(ctx context.Context, actor model.Actor, documentUUID string, fields []model.DocumentField) ([]model.DocumentField, error) {
	for i := range fields {
		if err := fields[i].Validate(); err != nil {
			return nil, err
		}
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	document, err := s.documents.GetByUUIDForUpdate(ctx, exec, documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, "update_fields"); err != nil {
		return nil, err
	}
	if document.IsSigned() {
		return nil, model.Errorf(model.ErrConflict, "подписанный документ нельзя изменять")
	}

	for i := range fields {
		fields[i].UUID = uuid.NewString()
		fields[i].DocumentUUID = document.UUID
	}
	if err := s.fields.ReplaceAll(ctx, exec, document.UUID, fields); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("fields=%d", len(fields))
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionDocumentFieldsUpdated, actor.UserUUID, document.UUID, details, actor.IP)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[DocumentService] ошибка коммита транзакции", err)
	}

	invalidateDocument(ctx, s.cache, document.UUID)
	return fields, nil
}

// Download : текущая версия файла, подписанная если она есть
func (s *DocumentService) Download(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error) {
	document, err := s.authorizedDocument(ctx, actor, documentUUID, "download")
	if err != nil {
		return nil, err
	}

	body, err := s.openArtifact(ctx, document.CurrentPath())
	if err != nil {
		return nil, err
	}

	filename := document.Filename
	if document.SignedPath != nil {
		base, ext := util.SplitExtension(document.Filename)
		filename = fmt.Sprintf("%s_signed.%s", base, ext)
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionDocumentDownloaded, actor.UserUUID, document.UUID, "", actor.IP))
	return &model.Artifact{Filename: filename, MimeType: document.MimeType, Body: body}, nil
}

// Preview : всегда оригинал, для отображения в браузере
func (s *DocumentService) Preview(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error) {
	document, err := s.authorizedDocument(ctx, actor, documentUUID, "preview")
	if err != nil {
		return nil, err
	}

	body, err := s.openArtifact(ctx, document.OriginalPath)
	if err != nil {
		return nil, err
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionDocumentPreviewed, actor.UserUUID, document.UUID, "", actor.IP))
	return &model.Artifact{Filename: document.Filename, MimeType: document.MimeType, Body: body}, nil
}

func (s *DocumentService) authorizedDocument(ctx context.Context, actor model.Actor, documentUUID, operation string) (*model.Document, error) {
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, operation); err != nil {
		return nil, err
	}
	return document, nil
}

func (s *DocumentService) openArtifact(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.storage.Open(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.Errorf(model.ErrNotFound, "файл документа не найден в хранилище")
	} else if err != nil {
		return nil, fmt.Errorf("[DocumentService] ошибка чтения файла: %w", err)
	}
	return body, nil
}

// Delete : подписанный документ удалить нельзя. Запись аудита остаётся, ссылка на документ в ней обнуляется
func (s *DocumentService) Delete(ctx context.Context, actor model.Actor, documentUUID string) error {
	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	document, err := s.documents.GetByUUIDForUpdate(ctx, exec, documentUUID)
	if err != nil {
		return notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, "delete"); err != nil {
		return err
	}
	if document.IsSigned() {
		return model.Errorf(model.ErrConflict, "подписанный документ нельзя удалить")
	}

	details := fmt.Sprintf("document_id=%s filename=%s", document.UUID, document.Filename)
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionDocumentDeleted, actor.UserUUID, document.UUID, details, actor.IP)); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, exec, document.UUID); err != nil {
		return notFound(err, "документ не найден")
	}

	if err := commit(); err != nil {
		return util.LogError("[DocumentService] ошибка коммита транзакции", err)
	}

	invalidateDocument(ctx, s.cache, document.UUID)
	deleteArtifact(ctx, s.storage, document.OriginalPath)
	if document.SignedPath != nil {
		deleteArtifact(ctx, s.storage, *document.SignedPath)
	}
	return nil
}
