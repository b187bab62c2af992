package ports

import (
	"context"
	"signature-web-server/internal/model"
)

// CacheRepository : Redis слой
type CacheRepository interface {
	SetDocument(ctx context.Context, document *model.Document) error
	GetDocument(ctx context.Context, uuid string) (*model.Document, error)
	DeleteDocument(ctx context.Context, uuid string) error
}

// RateLimiter : скользящее окно запросов по ключу
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
