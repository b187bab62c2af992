package ports

import (
	"context"
	"signature-web-server/internal/model"
	"time"

	"github.com/jmoiron/sqlx"
)

type SignatureRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, request *model.SignatureRequest) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error)
	GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error)
	ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error)
	ListSignedByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error)
	ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.SignatureRequest, error)
	MarkSigned(ctx context.Context, exec sqlx.ExtContext, requestUUID string, version int, fields model.SignedFields) (bool, error)
	MarkRejected(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (bool, error)
	TouchSentAt(ctx context.Context, exec sqlx.ExtContext, requestUUID string, sentAt time.Time) (bool, error)
	CountByStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (map[model.RequestStatus]int, error)
}

type SignatureService interface {
	Create(ctx context.Context, actor model.Actor, documentUUID, signerEmail, signatureType string) (*model.SignatureRequest, error)
	Get(ctx context.Context, requestUUID string) (*model.RequestWithDocument, error)
	ListForDocument(ctx context.Context, actor model.Actor, documentUUID string) ([]model.SignatureRequest, error)
	Sign(ctx context.Context, requestUUID string, input model.SignInput, ipAddress string) (*model.SignResult, error)
	Resend(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error)
	Cancel(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error)
}
