package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/couponbox/couponbox/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetCouponsSchema drops and recreates the coupons and issuances schema
// for tests. Issuances first on the way down: it references coupons.
func ResetCouponsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	migrations := []struct{ down, up string }{
		{"000002_issuances.down.sql", ""},
		{"000001_coupons.down.sql", "000001_coupons.up.sql"},
		{"", "000002_issuances.up.sql"},
	}

	for _, m := range migrations {
		for _, name := range []string{m.down, m.up} {
			if name == "" {
				continue
			}
			sql, err := os.ReadFile(filepath.Join(root, "migrations", name))
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}
			if _, err := pool.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestCoupon creates a coupon with an open window and sensible defaults.
func NewTestCoupon(t testing.TB, name string, totalCount, maxPerUser int) *model.Coupon {
	t.Helper()
	now := time.Now().UTC()
	return &model.Coupon{
		ID:         UniqueID("coupon"),
		Name:       name,
		TotalCount: totalCount,
		MaxPerUser: maxPerUser,
		StartAt:    now.Add(-time.Hour),
		EndAt:      now.Add(24 * time.Hour),
		CreatedAt:  now,
	}
}

// NewTestCouponWithWindow creates a coupon with an explicit validity window.
func NewTestCouponWithWindow(t testing.TB, name string, totalCount, maxPerUser int, startAt, endAt time.Time) *model.Coupon {
	t.Helper()
	coupon := NewTestCoupon(t, name, totalCount, maxPerUser)
	coupon.StartAt = startAt
	coupon.EndAt = endAt
	return coupon
}

// NewTestIssuance creates an issuance record for a coupon and user.
func NewTestIssuance(t testing.TB, couponID, userID string) *model.IssuanceRecord {
	t.Helper()
	return &model.IssuanceRecord{
		ID:       UniqueID("issuance"),
		CouponID: couponID,
		UserID:   userID,
		IssuedAt: time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
