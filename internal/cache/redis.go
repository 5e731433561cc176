package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/handiism/multitok/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisKey is the set that holds processed links.
const RedisKey = "multitok:url_cache"

// Redis is a Store backed by a Redis set. Durability follows the server's
// persistence settings; run it with appendfsync always for the same
// guarantee as the SQLite backend.
type Redis struct {
	cl  *redis.Client
	key string
	log *slog.Logger
}

// OpenRedis connects to the server at rawURL and checks it is reachable.
func OpenRedis(ctx context.Context, rawURL string, log *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	cl := redis.NewClient(opt)
	if _, err := cl.Ping(ctx).Result(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedis(cl, log), nil
}

// NewRedis wraps an existing client.
func NewRedis(cl *redis.Client, log *slog.Logger) *Redis {
	return &Redis{
		cl:  cl,
		key: RedisKey,
		log: orDiscard(log).With(slog.String("item", "RedisCache")),
	}
}

func (r *Redis) Contains(ctx context.Context, link model.Link) (bool, error) {
	ok, err := r.cl.SIsMember(ctx, r.key, string(link)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", link, err)
	}
	return ok, nil
}

func (r *Redis) MarkDone(ctx context.Context, link model.Link) error {
	if _, err := r.cl.SAdd(ctx, r.key, string(link)).Result(); err != nil {
		r.log.Error("Cannot mark link done", slog.String("link", string(link)), slog.Any("error", err))
		return fmt.Errorf("mark %s done: %w", link, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.cl.Close()
}
