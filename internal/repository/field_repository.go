package repository

import (
	"context"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type FieldRepository struct {
	*config.Database
}

func NewFieldRepository(database *config.Database) *FieldRepository {
	return &FieldRepository{database}
}

// ListByDocument : поля документа в порядке страниц
func (r *FieldRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentField, error) {
	query := `
		SELECT uuid, document_uuid, field_type, page_number, x_coord, y_coord, width, height
		FROM document_fields
		WHERE document_uuid = $1
		ORDER BY page_number, y_coord, x_coord
	`

	fields := []model.DocumentField{}
	if err := sqlx.SelectContext(ctx, exec, &fields, query, documentUUID); err != nil {
		return nil, util.LogError("[FieldRepo] не удалось получить поля документа", err)
	}
	return fields, nil
}

// ReplaceAll : заменяет разметку документа целиком. Вызывается внутри транзакции
func (r *FieldRepository) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, documentUUID string, fields []model.DocumentField) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM document_fields WHERE document_uuid = $1`, documentUUID); err != nil {
		return util.LogError("[FieldRepo] не удалось удалить старые поля", err)
	}

	query := `
		INSERT INTO document_fields (uuid, document_uuid, field_type, page_number, x_coord, y_coord, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, field := range fields {
		_, err := exec.ExecContext(ctx, query,
			field.UUID, documentUUID, field.FieldType, field.PageNumber, field.X, field.Y, field.Width, field.Height)
		if err != nil {
			return translateError("[FieldRepo] не удалось сохранить поле", err)
		}
	}
	return nil
}
