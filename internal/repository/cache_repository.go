package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheRepository : кэш метаданных документов в Redis.
// Промах и недоступность Redis не являются ошибкой для вызывающего, источник истины в Postgres
type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetDocument(ctx context.Context, document *model.Document) error {
	data, err := json.Marshal(document)
	if err != nil {
		return util.LogError("[CacheRepo] ошибка сериализации документа", err)
	}

	if err = r.client.Client.Set(ctx, r.key(document.UUID), data, r.ttl).Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка сохранения документа в Redis", err)
	}
	return nil
}

// GetDocument : nil, nil при промахе
func (r *CacheRepository) GetDocument(ctx context.Context, uuid string) (*model.Document, error) {
	val, err := r.client.Client.Get(ctx, r.key(uuid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, util.LogError("[CacheRepo] ошибка получения документа из Redis", err)
	}

	var document model.Document
	if err := json.Unmarshal(val, &document); err != nil {
		return nil, util.LogError("[CacheRepo] ошибка десериализации документа из кэша", err)
	}
	return &document, nil
}

func (r *CacheRepository) DeleteDocument(ctx context.Context, uuid string) error {
	if err := r.client.Client.Del(ctx, r.key(uuid)).Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка удаления документа из Redis", err)
	}
	return nil
}

func (r *CacheRepository) key(uuid string) string {
	return fmt.Sprintf("document:%s", uuid)
}
