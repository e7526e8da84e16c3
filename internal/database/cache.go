package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyUsage   = "baketsu:usage:"
	CacheKeyStorage = "baketsu:storage:"

	// Cache TTLs
	CacheTTLUsage   = 1 * time.Minute
	CacheTTLStorage = 1 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// UsageCacheKey returns the usage report cache key for a user
func UsageCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", CacheKeyUsage, userID)
}

// StorageCacheKey returns the storage summary cache key for a user
func StorageCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", CacheKeyStorage, userID)
}

// InvalidateUsageCache clears cached usage and storage figures for a user.
// Called after every ledger mutation (upload, delete, rename).
func InvalidateUsageCache(userID uint) {
	CacheDelete(UsageCacheKey(userID), StorageCacheKey(userID))
}
