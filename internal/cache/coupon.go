package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couponbox/couponbox/internal/model"
)

// Cache key prefixes and TTLs.
const (
	couponKeyPrefix  = "coupon:"
	soldOutKeySuffix = ":soldout"

	// DefaultCouponTTL is the TTL for cached coupon snapshots.
	DefaultCouponTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetCoupon retrieves a coupon snapshot from cache by ID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetCoupon(ctx context.Context, id string) (*model.CachedCoupon, error) {
	key := couponKeyPrefix + id

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedCoupon{
		Name:        result["name"],
		TotalCount:  result["total_count"],
		IssuedCount: result["issued_count"],
		MaxPerUser:  result["max_per_user"],
		StartAt:     result["start_at"],
		EndAt:       result["end_at"],
		CreatedAt:   result["created_at"],
	}

	return cached, nil
}

// SetCoupon stores a coupon snapshot in cache. Snapshots are advisory read
// fast paths; the ledger remains the source of truth for every decision.
func (c *Cache) SetCoupon(ctx context.Context, coupon *model.Coupon) error {
	key := couponKeyPrefix + coupon.ID
	cached := coupon.ToCachedCoupon()

	fields := map[string]any{
		"name":         cached.Name,
		"total_count":  cached.TotalCount,
		"issued_count": cached.IssuedCount,
		"max_per_user": cached.MaxPerUser,
		"start_at":     cached.StartAt,
		"end_at":       cached.EndAt,
		"created_at":   cached.CreatedAt,
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultCouponTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache coupon: %w", err)
	}

	return nil
}

// DeleteCoupon removes a coupon snapshot from cache.
func (c *Cache) DeleteCoupon(ctx context.Context, id string) error {
	key := couponKeyPrefix + id

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete coupon from cache: %w", err)
	}

	return nil
}

// IsSoldOut reports whether a coupon carries the sold-out marker. Errors
// degrade to false: a missed marker only sends the attempt down the slow
// path, where the ledger gives the authoritative answer.
func (c *Cache) IsSoldOut(ctx context.Context, couponID string) bool {
	key := couponKeyPrefix + couponID + soldOutKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("sold-out marker check failed", slog.String("coupon_id", couponID), slog.Any("error", err))
		return false
	}

	return exists > 0
}

// MarkSoldOut flags a coupon as exhausted. Issued counts never decrease, so
// the marker stays valid while the validity window is open; it expires at
// endAt so that attempts after the window closes fall through to the slow
// path and get the out-of-window answer there.
func (c *Cache) MarkSoldOut(ctx context.Context, couponID string, endAt time.Time) {
	ttl := time.Until(endAt)
	if ttl <= 0 {
		return
	}

	key := couponKeyPrefix + couponID + soldOutKeySuffix
	if err := c.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		slog.Warn("failed to set sold-out marker", slog.String("coupon_id", couponID), slog.Any("error", err))
	}
}
