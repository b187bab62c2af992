package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const documentColumns = `uuid, owner_uuid, filename, mime_type, size_bytes, original_path, original_sha256,
	signed_path, sha256_hash, status, created_at, updated_at`

type DocumentRepository struct {
	*config.Database
}

func NewDocumentRepository(database *config.Database) *DocumentRepository {
	return &DocumentRepository{database}
}

// Create : сохраняет метаданные загруженного документа
func (r *DocumentRepository) Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	query := `
		INSERT INTO documents (uuid, owner_uuid, filename, mime_type, size_bytes, original_path, original_sha256, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := exec.QueryRowxContext(ctx, query,
		document.UUID,
		document.OwnerUUID,
		document.Filename,
		document.MimeType,
		document.SizeBytes,
		document.OriginalPath,
		document.OriginalSha256,
		document.Status,
	).Scan(&document.CreatedAt, &document.UpdatedAt)
	if err != nil {
		return translateError("[DocumentRepo] не удалось сохранить документ", err)
	}

	return nil
}

// GetByUUID : документ без проверки владельца, доступ проверяет сервис
func (r *DocumentRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	return r.get(ctx, exec, `SELECT `+documentColumns+` FROM documents WHERE uuid = $1`, documentUUID)
}

// GetByUUIDForUpdate : блокирует строку документа до конца транзакции
func (r *DocumentRepository) GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	return r.get(ctx, exec, `SELECT `+documentColumns+` FROM documents WHERE uuid = $1 FOR UPDATE`, documentUUID)
}

func (r *DocumentRepository) get(ctx context.Context, exec sqlx.ExtContext, query, documentUUID string) (*model.Document, error) {
	var document model.Document
	if err := sqlx.GetContext(ctx, exec, &document, query, documentUUID); err != nil {
		return nil, translateError(fmt.Sprintf("[DocumentRepo] документ %s не найден", documentUUID), err)
	}
	return &document, nil
}

// List : страница документов, новые первыми. Возвращает также общее количество
func (r *DocumentRepository) List(ctx context.Context, exec sqlx.ExtContext, filter model.DocumentListFilter) ([]model.Document, int, error) {
	var where conditions
	if !filter.All {
		where.add("owner_uuid = ?", filter.OwnerUUID)
	}
	if filter.Status != "" {
		where.add("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		where.add("filename ILIKE ?", "%"+filter.Search+"%")
	}

	var total int
	countQuery := rebind(`SELECT COUNT(*) FROM documents` + where.where())
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, where.args...); err != nil {
		return nil, 0, util.LogError("[DocumentRepo] не удалось посчитать документы", err)
	}

	listQuery := rebind(`SELECT ` + documentColumns + ` FROM documents` + where.where() +
		` ORDER BY created_at DESC, uuid DESC LIMIT ? OFFSET ?`)
	args := append(append([]interface{}{}, where.args...), filter.PerPage, (filter.Page-1)*filter.PerPage)

	documents := []model.Document{}
	if err := sqlx.SelectContext(ctx, exec, &documents, listQuery, args...); err != nil {
		return nil, 0, util.LogError("[DocumentRepo] не удалось получить список документов", err)
	}

	return documents, total, nil
}

// ListByScope : все документы, видимые в scope (для статистики)
func (r *DocumentRepository) ListByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope) ([]model.Document, error) {
	var where conditions
	if !scope.All {
		where.add("owner_uuid = ?", scope.UserUUID)
	}

	documents := []model.Document{}
	query := rebind(`SELECT ` + documentColumns + ` FROM documents` + where.where() + ` ORDER BY created_at`)
	if err := sqlx.SelectContext(ctx, exec, &documents, query, where.args...); err != nil {
		return nil, util.LogError("[DocumentRepo] не удалось получить документы", err)
	}
	return documents, nil
}

// ListSignedByScope : подписанные документы scope, при непустом documentUUIDs только из этого списка
func (r *DocumentRepository) ListSignedByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, documentUUIDs []string) ([]model.Document, error) {
	var where conditions
	where.add("status = ?", string(model.DocumentSigned))
	if !scope.All {
		where.add("owner_uuid = ?", scope.UserUUID)
	}
	if len(documentUUIDs) > 0 {
		where.add("uuid = ANY(?)", pq.Array(documentUUIDs))
	}

	documents := []model.Document{}
	query := rebind(`SELECT ` + documentColumns + ` FROM documents` + where.where() + ` ORDER BY created_at`)
	if err := sqlx.SelectContext(ctx, exec, &documents, query, where.args...); err != nil {
		return nil, util.LogError("[DocumentRepo] не удалось получить подписанные документы", err)
	}
	return documents, nil
}

// UpdateStatus : меняет статус документа (подписанный файл не затрагивается)
func (r *DocumentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string, status model.DocumentStatus) error {
	query := `UPDATE documents SET status = $2, updated_at = NOW() WHERE uuid = $1`
	return r.execOne(ctx, exec, "[DocumentRepo] не удалось обновить статус", query, documentUUID, status)
}

// MarkSigned : статус signed, путь к подписанному файлу и его хэш записываются вместе
func (r *DocumentRepository) MarkSigned(ctx context.Context, exec sqlx.ExtContext, documentUUID, signedPath, sha256Hash string) error {
	query := `
		UPDATE documents
		SET status = $2, signed_path = $3, sha256_hash = $4, updated_at = NOW()
		WHERE uuid = $1
	`
	return r.execOne(ctx, exec, "[DocumentRepo] не удалось отметить документ подписанным", query,
		documentUUID, model.DocumentSigned, signedPath, sha256Hash)
}

// Delete : удаляет документ. Поля и запросы удаляются каскадом
func (r *DocumentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, documentUUID string) error {
	query := `DELETE FROM documents WHERE uuid = $1`
	return r.execOne(ctx, exec, "[DocumentRepo] не удалось удалить документ", query, documentUUID)
}

func (r *DocumentRepository) execOne(ctx context.Context, exec sqlx.ExtContext, message, query string, args ...interface{}) error {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return util.LogError(message, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.LogError(message, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", message, model.ErrNotFound)
	}
	return nil
}
