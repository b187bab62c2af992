package ports

import (
	"context"
	"io"
	"signature-web-server/internal/model"
	"time"

	"github.com/jmoiron/sqlx"
)

// AuditRepository : журнал только дополняется, методов изменения нет
type AuditRepository interface {
	Append(ctx context.Context, exec sqlx.ExtContext, entry *model.AuditLog) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, logUUID string) (*model.AuditLog, error)
	List(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter, limit, offset int) ([]model.AuditLog, int, error)
	ListAll(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter) ([]model.AuditLog, error)
	ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.AuditLog, error)
	ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.AuditLog, error)
}

type AuditService interface {
	ListLogs(ctx context.Context, actor model.Actor, filter model.AuditFilter, page, perPage int) (*model.AuditPage, error)
	GetLog(ctx context.Context, actor model.Actor, logUUID string) (*model.AuditLog, error)
	Stats(ctx context.Context, actor model.Actor, days int) (*model.AuditStats, error)
	Export(ctx context.Context, actor model.Actor, filter model.AuditFilter, w io.Writer) error
	Timeline(ctx context.Context, actor model.Actor, documentUUID string) ([]model.TimelineEntry, error)
	IntegrityCheck(ctx context.Context, actor model.Actor, documentUUIDs []string) (*model.IntegrityReport, error)
}
