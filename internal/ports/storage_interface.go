package ports

import (
	"context"
	"io"
	"signature-web-server/internal/model"
)

// ArtifactStorage : хранилище оригиналов и подписанных файлов.
// Open возвращает model.ErrNotFound, если объекта нет
type ArtifactStorage interface {
	Save(ctx context.Context, key string, content io.Reader) (*model.StoredObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Signer : собирает подписанный артефакт из текущего файла документа
type Signer interface {
	Sign(ctx context.Context, source io.Reader, manifest model.SignatureManifest) (io.Reader, error)
}

// TimeStamper : выдаёт метку времени для sha256 дайджеста
type TimeStamper interface {
	StampTime(ctx context.Context, digest []byte) (*model.TimestampToken, error)
}
