package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/util"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter : скользящее окно на ZSET, один ключ на клиента и маршрут
type RateLimiter struct {
	client *config.RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(rdb *config.RedisClient, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: rdb, limit: cfg.Requests, window: cfg.Window.Duration, now: time.Now}
}

// Allow : false, если за окно уже было limit запросов. Отклонённый запрос в окно не записывается
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowStart := now.Add(-r.window).UnixNano()

	pipe := r.client.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, util.LogError("[RateLimiter] не удалось посчитать запросы в окне", err)
	}

	if count.Val() >= int64(r.limit) {
		return false, nil
	}

	pipe = r.client.Client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10)})
	pipe.Expire(ctx, redisKey, r.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, util.LogError("[RateLimiter] не удалось записать запрос", err)
	}
	return true, nil
}
