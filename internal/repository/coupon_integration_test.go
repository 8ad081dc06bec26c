//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couponbox/couponbox/internal/testutil"
)

func TestIntegrationCouponRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	coupon := testutil.NewTestCoupon(t, "Launch Promo", 100, 2)
	if err := repo.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	retrieved, err := repo.GetCouponByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("GetCouponByID failed: %v", err)
	}

	if retrieved.Name != coupon.Name {
		t.Errorf("Name mismatch: got %q, want %q", retrieved.Name, coupon.Name)
	}
	if retrieved.TotalCount != 100 || retrieved.IssuedCount != 0 {
		t.Errorf("counts: got %d/%d, want 100/0", retrieved.TotalCount, retrieved.IssuedCount)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationCouponRepository_GetByID_NotFound(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	_, err := repo.GetCouponByID(ctx, "nonexistent-id")
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("Expected ErrCouponNotFound, got: %v", err)
	}
}

func TestIntegrationCouponRepository_ListCoupons_Order(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	first := testutil.NewTestCoupon(t, "First", 10, 1)
	second := testutil.NewTestCoupon(t, "Second", 10, 1)
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)

	if err := repo.CreateCoupon(ctx, first); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}
	if err := repo.CreateCoupon(ctx, second); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	coupons, err := repo.ListCoupons(ctx)
	if err != nil {
		t.Fatalf("ListCoupons failed: %v", err)
	}
	if len(coupons) != 2 {
		t.Fatalf("Expected 2 coupons, got %d", len(coupons))
	}
	if coupons[0].ID != first.ID || coupons[1].ID != second.ID {
		t.Errorf("Expected insertion order [%s, %s], got [%s, %s]", first.ID, second.ID, coupons[0].ID, coupons[1].ID)
	}
}

func TestIntegrationCouponRepository_RecordIssuance(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	coupon := testutil.NewTestCoupon(t, "Record", 2, 1)
	if err := repo.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	rec := testutil.NewTestIssuance(t, coupon.ID, "alice")
	if err := repo.RecordIssuance(ctx, rec, coupon.MaxPerUser); err != nil {
		t.Fatalf("RecordIssuance failed: %v", err)
	}

	retrieved, err := repo.GetCouponByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("GetCouponByID failed: %v", err)
	}
	if retrieved.IssuedCount != 1 {
		t.Errorf("IssuedCount: got %d, want 1", retrieved.IssuedCount)
	}

	count, err := repo.CountUserIssuances(ctx, coupon.ID, "alice")
	if err != nil {
		t.Fatalf("CountUserIssuances failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUserIssuances: got %d, want 1", count)
	}
}

func TestIntegrationCouponRepository_RecordIssuance_SoldOut(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	coupon := testutil.NewTestCoupon(t, "SoldOut", 1, 1)
	if err := repo.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	if err := repo.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "alice"), 1); err != nil {
		t.Fatalf("first RecordIssuance failed: %v", err)
	}

	err := repo.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "bob"), 1)
	if !errors.Is(err, ErrSoldOut) {
		t.Errorf("Expected ErrSoldOut, got: %v", err)
	}

	// The rejected attempt must leave no ledger record behind.
	records, err := repo.ListIssuancesByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListIssuancesByUser failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records for rejected user, got %d", len(records))
	}
}

func TestIntegrationCouponRepository_RecordIssuance_QuotaExceeded(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	coupon := testutil.NewTestCoupon(t, "Quota", 10, 1)
	if err := repo.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	if err := repo.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "alice"), 1); err != nil {
		t.Fatalf("first RecordIssuance failed: %v", err)
	}

	err := repo.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "alice"), 1)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded, got: %v", err)
	}

	// The counter must not have moved for the rejected attempt.
	retrieved, _ := repo.GetCouponByID(ctx, coupon.ID)
	if retrieved.IssuedCount != 1 {
		t.Errorf("IssuedCount: got %d, want 1", retrieved.IssuedCount)
	}
}

func TestIntegrationCouponRepository_RecordIssuance_ConcurrentNeverOversells(t *testing.T) {
	ctx, repo := newCouponTestEnv(t)

	const capacity = 5
	const attempts = 20

	coupon := testutil.NewTestCoupon(t, "Concurrent", capacity, 1)
	if err := repo.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testutil.NewTestIssuance(t, coupon.ID, testutil.UniqueID("user"))
			errs[i] = repo.RecordIssuance(ctx, rec, 1)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrSoldOut):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if accepted != capacity {
		t.Errorf("accepted %d issuances, want exactly %d", accepted, capacity)
	}

	retrieved, _ := repo.GetCouponByID(ctx, coupon.ID)
	if retrieved.IssuedCount != capacity {
		t.Errorf("IssuedCount: got %d, want %d", retrieved.IssuedCount, capacity)
	}

	records, err := repo.ListIssuancesByCoupon(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("ListIssuancesByCoupon failed: %v", err)
	}
	if len(records) != capacity {
		t.Errorf("ledger holds %d records, want %d", len(records), capacity)
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newCouponTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetCouponsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset coupons schema: %v", err)
	}

	return ctx, repo
}
