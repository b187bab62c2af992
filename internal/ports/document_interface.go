package ports

import (
	"context"
	"signature-web-server/internal/model"

	"github.com/jmoiron/sqlx"
)

// DocumentRepository : SQL слой
type DocumentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error)
	GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error)
	List(ctx context.Context, exec sqlx.ExtContext, filter model.DocumentListFilter) ([]model.Document, int, error)
	ListByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope) ([]model.Document, error)
	ListSignedByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, documentUUIDs []string) ([]model.Document, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string, status model.DocumentStatus) error
	MarkSigned(ctx context.Context, exec sqlx.ExtContext, documentUUID, signedPath, sha256Hash string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, documentUUID string) error
}

type FieldRepository interface {
	ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentField, error)
	ReplaceAll(ctx context.Context, exec sqlx.ExtContext, documentUUID string, fields []model.DocumentField) error
}

type DocumentService interface {
	Upload(ctx context.Context, actor model.Actor, input model.UploadInput) (*model.Document, error)
	List(ctx context.Context, actor model.Actor, filter model.DocumentListFilter) (*model.DocumentPage, error)
	Get(ctx context.Context, actor model.Actor, documentUUID string) (*model.DocumentDetails, error)
	ReplaceFields(ctx context.Context, actor model.Actor, documentUUID string, fields []model.DocumentField) ([]model.DocumentField, error)
	Download(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error)
	Preview(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error)
	Delete(ctx context.Context, actor model.Actor, documentUUID string) error
}

// VerificationService : публичная проверка целостности подписанного документа
type VerificationService interface {
	Verify(ctx context.Context, documentUUID, ipAddress string) (*model.Verification, error)
}
