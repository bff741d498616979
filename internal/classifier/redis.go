package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// RedisCache shares merchant mappings between processes through Redis.
// Values are JSON encoded under merchant:<userID>:<merchant>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache over an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements MerchantCache.
func (r *RedisCache) Get(ctx context.Context, userID int64, merchant string) (model.MerchantMapping, bool, error) {
	val, err := r.client.Get(ctx, cacheKey(userID, merchant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.MerchantMapping{}, false, nil
	}
	if err != nil {
		return model.MerchantMapping{}, false, fmt.Errorf("failed to read merchant cache: %w", err)
	}

	var m model.MerchantMapping
	if err := json.Unmarshal(val, &m); err != nil {
		return model.MerchantMapping{}, false, fmt.Errorf("failed to decode merchant mapping: %w", err)
	}
	return m, true, nil
}

// Set implements MerchantCache. A classifier mapping never replaces a user one.
func (r *RedisCache) Set(ctx context.Context, mapping model.MerchantMapping) error {
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("invalid merchant mapping: %w", err)
	}

	if mapping.Source != model.SourceUser {
		existing, ok, err := r.Get(ctx, mapping.UserID, mapping.MerchantNormalized)
		if err == nil && ok && existing.Source == model.SourceUser {
			return nil
		}
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to encode merchant mapping: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(mapping.UserID, mapping.MerchantNormalized), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write merchant cache: %w", err)
	}
	return nil
}

