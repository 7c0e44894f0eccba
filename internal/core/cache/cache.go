// Package cache stores transcripts between runs so a media item already
// transcribed is not downloaded and transcribed again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

const keyPrefix = "contentai"

// Store holds transcripts keyed by source platform and external id.
type Store interface {
	GetTranscript(ctx context.Context, platform, externalID string) (string, bool, error)
	SetTranscript(ctx context.Context, platform, externalID, text string) error
	Close() error
}

// New returns a Redis store when an address is configured and a no-op store
// otherwise.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if cfg.RedisAddr == "" {
		return Noop{}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedis(rdb, cfg.TTL), nil
}

// Redis is a Store backed by a Redis client.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps rdb. A zero ttl defaults to 48 hours.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func transcriptKey(platform, externalID string) string {
	return fmt.Sprintf("%s:transcript:%s:%s", keyPrefix, platform, externalID)
}

func (r *Redis) GetTranscript(ctx context.Context, platform, externalID string) (string, bool, error) {
	text, err := r.rdb.Get(ctx, transcriptKey(platform, externalID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (r *Redis) SetTranscript(ctx context.Context, platform, externalID, text string) error {
	return r.rdb.Set(ctx, transcriptKey(platform, externalID), text, r.ttl).Err()
}

// Close closes the underlying redis connection
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) GetTranscript(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func (Noop) SetTranscript(context.Context, string, string, string) error { return nil }

func (Noop) Close() error { return nil }
