package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/ouvidoriag/ogdash2/internal/domain"
)

const redisKeyPrefix = "ogdash:cache:"

// RedisStore keeps entries as JSON envelopes under plain keys. Redis expiry
// is not used for freshness; the optional retention only reclaims space once
// an entry is well past its TTL.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

type RedisOption func(*RedisStore)

// WithRetention sets how long past its TTL an entry may stay in Redis.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.retention = d }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, retention: 24 * time.Hour}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type redisEnvelope struct {
	Value      json.RawMessage `json:"value"`
	ComputedAt time.Time       `json:"computed_at"`
	TTLSeconds int             `json:"ttl_seconds"`
}

func (s *RedisStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// An unreadable envelope is treated as a miss and overwritten on recompute.
		return nil, nil
	}
	return &domain.CacheEntry{
		Key:        key,
		Value:      datatypes.JSON(env.Value),
		ComputedAt: env.ComputedAt,
		TTLSeconds: env.TTLSeconds,
	}, nil
}

// Put writes the envelope with a single SET, so readers see either the old
// entry or the new one.
func (s *RedisStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil {
		return nil
	}
	raw, err := json.Marshal(redisEnvelope{
		Value:      json.RawMessage(entry.Value),
		ComputedAt: entry.ComputedAt,
		TTLSeconds: entry.TTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("encode cache envelope: %w", err)
	}
	var expiry time.Duration
	if s.retention > 0 && entry.TTLSeconds > 0 {
		expiry = time.Duration(entry.TTLSeconds)*time.Second + s.retention
	}
	return s.client.Set(ctx, redisKeyPrefix+entry.Key, raw, expiry).Err()
}
