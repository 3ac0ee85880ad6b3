package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"browser-monitor-worker/domain"
)

type RedisClient interface {
	MarkScraped(ctx context.Context, url string, ttl time.Duration) (bool, error)
	ForgetScraped(ctx context.Context, url string) error
}

type redisClient struct {
	client *redis.Client
}

func NewRedisClient(host, port string) RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port),
	})
	return &redisClient{client: rdb}
}

// MarkScraped records url as scraped for ttl and reports whether it was new.
func (r *redisClient) MarkScraped(ctx context.Context, url string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, fmt.Sprintf(domain.RedisKeyScraped, url), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failure: %w", err)
	}
	return ok, nil
}

// ForgetScraped lets a URL whose scrape failed be tried again.
func (r *redisClient) ForgetScraped(ctx context.Context, url string) error {
	if err := r.client.Del(ctx, fmt.Sprintf(domain.RedisKeyScraped, url)).Err(); err != nil {
		return fmt.Errorf("redis del failure: %w", err)
	}
	return nil
}
