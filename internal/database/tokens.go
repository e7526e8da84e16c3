package database

import (
	"context"
	"time"
)

const tokenBlacklistPrefix = "baketsu:revoked:"

// BlacklistToken marks a JWT as revoked until it would have expired anyway.
// Used on logout so the token stops working immediately.
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil || ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Set(ctx, tokenBlacklistPrefix+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT has been revoked via logout
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	n, err := Redis.Exists(ctx, tokenBlacklistPrefix+token).Result()
	return err == nil && n > 0
}
