package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couponbox/couponbox/internal/cache"
	"github.com/couponbox/couponbox/internal/model"
	"github.com/couponbox/couponbox/internal/repository"
	"github.com/couponbox/couponbox/internal/testutil"
)

func newCatalog(t *testing.T) (*CatalogService, *repository.Memory) {
	t.Helper()
	store := repository.NewMemory()
	return NewCatalogService(store, nil, nil), store
}

func validInput() CreateCouponInput {
	now := time.Now().UTC()
	return CreateCouponInput{
		Name:       "Launch Promo",
		TotalCount: 100,
		MaxPerUser: 2,
		StartAt:    now.Add(-time.Hour),
		EndAt:      now.Add(24 * time.Hour),
	}
}

func TestCatalogService_CreateCoupon(t *testing.T) {
	t.Parallel()

	svc, store := newCatalog(t)
	ctx := context.Background()

	coupon, err := svc.CreateCoupon(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	if coupon.ID == "" {
		t.Error("expected generated ID")
	}
	if coupon.IssuedCount != 0 {
		t.Errorf("IssuedCount = %d, want 0", coupon.IssuedCount)
	}
	if coupon.MaxPerUser != 2 {
		t.Errorf("MaxPerUser = %d, want 2", coupon.MaxPerUser)
	}

	stored, err := store.GetCouponByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("stored coupon missing: %v", err)
	}
	if stored.Name != "Launch Promo" {
		t.Errorf("stored Name = %q, want Launch Promo", stored.Name)
	}
}

func TestCatalogService_CreateCoupon_DefaultMaxPerUser(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	input := validInput()
	input.MaxPerUser = 0

	coupon, err := svc.CreateCoupon(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if coupon.MaxPerUser != 1 {
		t.Errorf("MaxPerUser = %d, want default 1", coupon.MaxPerUser)
	}
}

func TestCatalogService_CreateCoupon_Validation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name    string
		mutate  func(*CreateCouponInput)
		wantErr error
	}{
		{"empty name", func(in *CreateCouponInput) { in.Name = "  " }, ErrInvalidName},
		{"negative total", func(in *CreateCouponInput) { in.TotalCount = -1 }, ErrInvalidTotalCount},
		{"negative max per user", func(in *CreateCouponInput) { in.MaxPerUser = -2 }, ErrInvalidMaxPerUser},
		{"inverted window", func(in *CreateCouponInput) { in.StartAt, in.EndAt = in.EndAt, in.StartAt }, ErrInvalidWindow},
		{"empty window", func(in *CreateCouponInput) { in.StartAt = now; in.EndAt = now }, ErrInvalidWindow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newCatalog(t)
			input := validInput()
			tt.mutate(&input)

			_, err := svc.CreateCoupon(context.Background(), input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateCoupon error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogService_CreateCoupon_ZeroCapacityAllowed(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	input := validInput()
	input.TotalCount = 0

	coupon, err := svc.CreateCoupon(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if !coupon.SoldOut() {
		t.Error("zero-capacity coupon should report sold out")
	}
}

// fakeCouponCache is an in-process CouponCache double.
type fakeCouponCache struct {
	coupons map[string]*model.CachedCoupon
}

func newFakeCouponCache() *fakeCouponCache {
	return &fakeCouponCache{coupons: make(map[string]*model.CachedCoupon)}
}

func (f *fakeCouponCache) GetCoupon(_ context.Context, id string) (*model.CachedCoupon, error) {
	cached, ok := f.coupons[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cached, nil
}

func (f *fakeCouponCache) SetCoupon(_ context.Context, coupon *model.Coupon) error {
	f.coupons[coupon.ID] = coupon.ToCachedCoupon()
	return nil
}

func TestCatalogService_GetCoupon_CacheHitKeepsFullEntity(t *testing.T) {
	t.Parallel()

	store := repository.NewMemory()
	couponCache := newFakeCouponCache()
	svc := NewCatalogService(store, couponCache, nil)
	ctx := context.Background()

	created, err := svc.CreateCoupon(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	// CreateCoupon warms the cache, so this read is served from it.
	got, err := svc.GetCoupon(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCoupon: %v", err)
	}
	if _, ok := couponCache.coupons[created.ID]; !ok {
		t.Fatal("expected the cache to hold the coupon")
	}

	if got.Name != created.Name || got.TotalCount != created.TotalCount || got.MaxPerUser != created.MaxPerUser {
		t.Errorf("cached read = %+v, want fields of %+v", got, created)
	}
	if got.CreatedAt.IsZero() {
		t.Error("cached read lost CreatedAt")
	}
	if !got.CreatedAt.Equal(created.CreatedAt.Truncate(time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt.Truncate(time.Second))
	}
}

func TestCatalogService_GetCoupon_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	_, err := svc.GetCoupon(context.Background(), "missing")
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("GetCoupon error = %v, want ErrCouponNotFound", err)
	}
}

func TestCatalogService_ListActiveCoupons(t *testing.T) {
	t.Parallel()

	svc, store := newCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := testutil.NewTestCouponWithWindow(t, "Live", 10, 1, now.Add(-time.Hour), now.Add(time.Hour))
	future := testutil.NewTestCouponWithWindow(t, "Future", 10, 1, now.Add(time.Hour), now.Add(2*time.Hour))
	past := testutil.NewTestCouponWithWindow(t, "Past", 10, 1, now.Add(-2*time.Hour), now.Add(-time.Hour))

	if err := store.CreateCoupon(ctx, live); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if err := store.CreateCoupon(ctx, future); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if err := store.CreateCoupon(ctx, past); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	active, err := svc.ListActiveCoupons(ctx)
	if err != nil {
		t.Fatalf("ListActiveCoupons: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("active = %v, want only %s", active, live.ID)
	}

	// Idempotent without intervening writes.
	again, err := svc.ListActiveCoupons(ctx)
	if err != nil {
		t.Fatalf("ListActiveCoupons (again): %v", err)
	}
	if len(again) != len(active) || again[0].ID != active[0].ID {
		t.Error("repeated ListActiveCoupons changed its answer with no writes")
	}
}

func TestCatalogService_IssuanceHistory_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	_, err := svc.IssuanceHistory(context.Background(), "missing")
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("IssuanceHistory error = %v, want ErrCouponNotFound", err)
	}
}

func TestCatalogService_UserHistory_UnknownUserIsEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	records, err := svc.UserHistory(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("UserHistory: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestCatalogService_UserStatus(t *testing.T) {
	t.Parallel()

	svc, store := newCatalog(t)
	ctx := context.Background()

	coupon := testutil.NewTestCoupon(t, "Status", 10, 2)
	if err := store.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	status, err := svc.UserStatus(ctx, coupon.ID, "alice")
	if err != nil {
		t.Fatalf("UserStatus: %v", err)
	}
	if status.IssuedCount != 0 || !status.CanIssueMore {
		t.Errorf("fresh status = %+v, want 0 issued and can issue", status)
	}

	if err := store.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "alice"), coupon.MaxPerUser); err != nil {
		t.Fatalf("RecordIssuance: %v", err)
	}
	if err := store.RecordIssuance(ctx, testutil.NewTestIssuance(t, coupon.ID, "alice"), coupon.MaxPerUser); err != nil {
		t.Fatalf("RecordIssuance: %v", err)
	}

	status, err = svc.UserStatus(ctx, coupon.ID, "alice")
	if err != nil {
		t.Fatalf("UserStatus: %v", err)
	}
	if status.IssuedCount != 2 {
		t.Errorf("IssuedCount = %d, want 2", status.IssuedCount)
	}
	if status.CanIssueMore {
		t.Error("CanIssueMore should be false at quota")
	}
}

func TestCatalogService_UserStatus_CouponNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	_, err := svc.UserStatus(context.Background(), "missing", "alice")
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("UserStatus error = %v, want ErrCouponNotFound", err)
	}
}
