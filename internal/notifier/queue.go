package notifier

import (
	"context"
	"encoding/json"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"time"
)

// RedisQueue : уведомления кладутся JSON-строками в список Redis, почтовый воркер забирает их через BLPOP
type RedisQueue struct {
	client  *config.RedisClient
	key     string
	timeout time.Duration
}

func NewRedisQueue(rdb *config.RedisClient, cfg config.NotificationConfig) *RedisQueue {
	return &RedisQueue{client: rdb, key: cfg.QueueKey, timeout: cfg.Timeout.Duration}
}

func (q *RedisQueue) Enqueue(ctx context.Context, notification model.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return util.LogError("[RedisQueue] ошибка сериализации уведомления", err)
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	if err := q.client.Client.RPush(ctx, q.key, payload).Err(); err != nil {
		return util.LogError("[RedisQueue] не удалось поставить уведомление в очередь", err)
	}
	return nil
}
