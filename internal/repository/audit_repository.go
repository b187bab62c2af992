package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const auditColumns = `uuid, document_uuid, user_uuid, action_type, details, ip_address, timestamp`

// AuditRepository : журнал только дополняется, UPDATE и DELETE здесь нет
type AuditRepository struct {
	*config.Database
}

func NewAuditRepository(database *config.Database) *AuditRepository {
	return &AuditRepository{database}
}

// Append : дописывает запись, timestamp выставляет база
func (r *AuditRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *model.AuditLog) error {
	if entry.UUID == "" {
		entry.UUID = uuid.NewString()
	}

	query := `
		INSERT INTO audit_logs (uuid, document_uuid, user_uuid, action_type, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING timestamp
	`
	err := exec.QueryRowxContext(ctx, query,
		entry.UUID,
		entry.DocumentUUID,
		entry.UserUUID,
		entry.ActionType,
		entry.Details,
		entry.IPAddress,
	).Scan(&entry.Timestamp)
	if err != nil {
		return util.LogError(fmt.Sprintf("[AuditRepo] не удалось записать %s", entry.ActionType), err)
	}
	return nil
}

func (r *AuditRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, logUUID string) (*model.AuditLog, error) {
	var entry model.AuditLog
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE uuid = $1`
	if err := sqlx.GetContext(ctx, exec, &entry, query, logUUID); err != nil {
		return nil, translateError(fmt.Sprintf("[AuditRepo] запись %s не найдена", logUUID), err)
	}
	return &entry, nil
}

// List : страница журнала, новые первыми
func (r *AuditRepository) List(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter, limit, offset int) ([]model.AuditLog, int, error) {
	var where conditions
	where.addAuditScope(scope)
	where.addAuditFilter(filter)

	var total int
	countQuery := rebind(`SELECT COUNT(*) FROM audit_logs` + where.where())
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, where.args...); err != nil {
		return nil, 0, util.LogError("[AuditRepo] не удалось посчитать записи журнала", err)
	}

	query := rebind(`SELECT ` + auditColumns + ` FROM audit_logs` + where.where() +
		` ORDER BY timestamp DESC, uuid LIMIT ? OFFSET ?`)
	args := append(append([]interface{}{}, where.args...), limit, offset)

	logs, err := r.list(ctx, exec, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListAll : все записи под фильтром, для экспорта
func (r *AuditRepository) ListAll(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter) ([]model.AuditLog, error) {
	var where conditions
	where.addAuditScope(scope)
	where.addAuditFilter(filter)

	query := rebind(`SELECT ` + auditColumns + ` FROM audit_logs` + where.where() + ` ORDER BY timestamp DESC, uuid`)
	return r.list(ctx, exec, query, where.args...)
}

func (r *AuditRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE document_uuid = $1 ORDER BY timestamp DESC, uuid`
	return r.list(ctx, exec, query, documentUUID)
}

func (r *AuditRepository) ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.AuditLog, error) {
	var where conditions
	where.addAuditScope(scope)
	where.add("timestamp >= ?", since)

	query := rebind(`SELECT ` + auditColumns + ` FROM audit_logs` + where.where() + ` ORDER BY timestamp`)
	return r.list(ctx, exec, query, where.args...)
}

func (r *AuditRepository) list(ctx context.Context, exec sqlx.ExtContext, query string, args ...interface{}) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	if err := sqlx.SelectContext(ctx, exec, &logs, query, args...); err != nil {
		return nil, util.LogError("[AuditRepo] не удалось получить записи журнала", err)
	}
	return logs, nil
}
