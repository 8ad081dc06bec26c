// Package seed bootstraps demonstration coupons on startup.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couponbox/couponbox/internal/model"
	"github.com/oklog/ulid/v2"
)

// Store is the slice of the ledger store the seeder needs.
type Store interface {
	CountCoupons(ctx context.Context) (int, error)
	CreateCoupon(ctx context.Context, coupon *model.Coupon) error
}

// Run creates a set of demonstration coupons if the store is empty. It is a
// no-op when any coupon already exists, so restarts never duplicate data.
func Run(ctx context.Context, store Store, logger *slog.Logger) error {
	count, err := store.CountCoupons(ctx)
	if err != nil {
		return fmt.Errorf("count coupons: %w", err)
	}
	if count > 0 {
		logger.Debug("seed skipped, store not empty", slog.Int("coupons", count))
		return nil
	}

	now := time.Now().UTC()
	coupons := []*model.Coupon{
		{
			Name:       "Launch Day Promo",
			TotalCount: 100,
			MaxPerUser: 1,
			StartAt:    now.Add(-time.Hour),
			EndAt:      now.Add(7 * 24 * time.Hour),
		},
		{
			Name:       "Weekend Flash Sale",
			TotalCount: 50,
			MaxPerUser: 2,
			StartAt:    now.Add(24 * time.Hour),
			EndAt:      now.Add(3 * 24 * time.Hour),
		},
		{
			Name:       "Newsletter Signup Bonus",
			TotalCount: 1000,
			MaxPerUser: 3,
			StartAt:    now.Add(-time.Hour),
			EndAt:      now.Add(30 * 24 * time.Hour),
		},
		{
			Name:       "VIP Early Access",
			TotalCount: 10,
			MaxPerUser: 1,
			StartAt:    now.Add(-time.Hour),
			EndAt:      now.Add(24 * time.Hour),
		},
	}

	for _, coupon := range coupons {
		coupon.ID = ulid.Make().String()
		coupon.CreatedAt = now
		if err := store.CreateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("seed coupon %q: %w", coupon.Name, err)
		}
	}

	logger.Info("demo coupons seeded", slog.Int("count", len(coupons)))
	return nil
}
