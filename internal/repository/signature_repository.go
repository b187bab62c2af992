package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"time"

	"github.com/jmoiron/sqlx"
)

const requestColumns = `uuid, document_uuid, signer_email, status, signature_type, sent_at, signed_at,
	ip_address, geolocation, biometric_data_placeholder, timestamp_token, version`

type SignatureRepository struct {
	*config.Database
}

func NewSignatureRepository(database *config.Database) *SignatureRepository {
	return &SignatureRepository{database}
}

// Create : новый запрос всегда pending
func (r *SignatureRepository) Create(ctx context.Context, exec sqlx.ExtContext, request *model.SignatureRequest) error {
	query := `
		INSERT INTO signature_requests (uuid, document_uuid, signer_email, status, signature_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sent_at, version
	`

	err := exec.QueryRowxContext(ctx, query,
		request.UUID,
		request.DocumentUUID,
		request.SignerEmail,
		model.RequestPending,
		request.SignatureType,
	).Scan(&request.SentAt, &request.Version)
	if err != nil {
		return translateError("[SignatureRepo] не удалось создать запрос на подпись", err)
	}
	request.Status = model.RequestPending
	return nil
}

func (r *SignatureRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error) {
	return r.get(ctx, exec, `SELECT `+requestColumns+` FROM signature_requests WHERE uuid = $1`, requestUUID)
}

// GetByUUIDForUpdate : блокирует запрос до конца транзакции, подписания сериализуются
func (r *SignatureRepository) GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error) {
	return r.get(ctx, exec, `SELECT `+requestColumns+` FROM signature_requests WHERE uuid = $1 FOR UPDATE`, requestUUID)
}

func (r *SignatureRepository) get(ctx context.Context, exec sqlx.ExtContext, query, requestUUID string) (*model.SignatureRequest, error) {
	var request model.SignatureRequest
	if err := sqlx.GetContext(ctx, exec, &request, query, requestUUID); err != nil {
		return nil, translateError(fmt.Sprintf("[SignatureRepo] запрос %s не найден", requestUUID), err)
	}
	return &request, nil
}

// ListByDocument : запросы документа в порядке создания
func (r *SignatureRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signature_requests WHERE document_uuid = $1 ORDER BY id`
	return r.list(ctx, exec, query, documentUUID)
}

// ListSignedByDocument : подписанные запросы в порядке создания
func (r *SignatureRepository) ListSignedByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signature_requests WHERE document_uuid = $1 AND status = $2 ORDER BY id`
	return r.list(ctx, exec, query, documentUUID, model.RequestSigned)
}

// ListByScopeSince : запросы по документам scope, отправленные не раньше since
func (r *SignatureRepository) ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.SignatureRequest, error) {
	var where conditions
	where.add("sent_at >= ?", since)
	if !scope.All {
		where.add("document_uuid IN (SELECT uuid FROM documents WHERE owner_uuid = ?)", scope.UserUUID)
	}
	query := rebind(`SELECT ` + requestColumns + ` FROM signature_requests` + where.where() + ` ORDER BY id`)
	return r.list(ctx, exec, query, where.args...)
}

func (r *SignatureRepository) list(ctx context.Context, exec sqlx.ExtContext, query string, args ...interface{}) ([]model.SignatureRequest, error) {
	requests := []model.SignatureRequest{}
	if err := sqlx.SelectContext(ctx, exec, &requests, query, args...); err != nil {
		return nil, util.LogError("[SignatureRepo] не удалось получить запросы на подпись", err)
	}
	return requests, nil
}

// MarkSigned : переход pending -> signed только для той версии, которую прочитал вызывающий.
// false означает, что запрос уже изменён другим подписанием
func (r *SignatureRepository) MarkSigned(ctx context.Context, exec sqlx.ExtContext, requestUUID string, version int, fields model.SignedFields) (bool, error) {
	query := `
		UPDATE signature_requests
		SET status = $3, signed_at = $4, ip_address = $5, geolocation = $6,
			biometric_data_placeholder = $7, timestamp_token = $8, version = version + 1
		WHERE uuid = $1 AND version = $2 AND status = 'pending'
	`
	return r.execGuarded(ctx, exec, "[SignatureRepo] не удалось отметить запрос подписанным", query,
		requestUUID, version, model.RequestSigned, fields.SignedAt, fields.IPAddress,
		fields.Geolocation, fields.BiometricData, fields.TimestampToken)
}

// MarkRejected : отмена возможна только из pending
func (r *SignatureRepository) MarkRejected(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (bool, error) {
	query := `
		UPDATE signature_requests SET status = $2, version = version + 1
		WHERE uuid = $1 AND status = 'pending'
	`
	return r.execGuarded(ctx, exec, "[SignatureRepo] не удалось отменить запрос", query, requestUUID, model.RequestRejected)
}

// TouchSentAt : повторная отправка обновляет только sent_at
func (r *SignatureRepository) TouchSentAt(ctx context.Context, exec sqlx.ExtContext, requestUUID string, sentAt time.Time) (bool, error) {
	query := `UPDATE signature_requests SET sent_at = $2 WHERE uuid = $1 AND status = 'pending'`
	return r.execGuarded(ctx, exec, "[SignatureRepo] не удалось обновить время отправки", query, requestUUID, sentAt)
}

func (r *SignatureRepository) execGuarded(ctx context.Context, exec sqlx.ExtContext, message, query string, args ...interface{}) (bool, error) {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return false, util.LogError(message, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError(message, err)
	}
	return rows == 1, nil
}

// CountByStatus : число запросов документа по статусам
func (r *SignatureRepository) CountByStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (map[model.RequestStatus]int, error) {
	query := `SELECT status, COUNT(*) AS total FROM signature_requests WHERE document_uuid = $1 GROUP BY status`

	var rows []struct {
		Status model.RequestStatus `db:"status"`
		Total  int                 `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, exec, &rows, query, documentUUID); err != nil {
		return nil, util.LogError("[SignatureRepo] не удалось посчитать запросы", err)
	}

	counts := make(map[model.RequestStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
