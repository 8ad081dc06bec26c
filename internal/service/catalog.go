// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couponbox/couponbox/internal/cache"
	"github.com/couponbox/couponbox/internal/metrics"
	"github.com/couponbox/couponbox/internal/model"
	"github.com/couponbox/couponbox/internal/repository"
	"github.com/oklog/ulid/v2"
)

// Service errors.
var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrInvalidName       = errors.New("name must not be empty")
	ErrInvalidTotalCount = errors.New("total_count must be zero or positive")
	ErrInvalidMaxPerUser = errors.New("max_per_user must be at least 1")
	ErrInvalidWindow     = errors.New("start_at must be before end_at")
)

const maxNameLength = 200

// CatalogStore is the persistence the catalog reads and writes. Both the
// Postgres repository and the in-memory store satisfy it.
type CatalogStore interface {
	CreateCoupon(ctx context.Context, coupon *model.Coupon) error
	GetCouponByID(ctx context.Context, id string) (*model.Coupon, error)
	ListCoupons(ctx context.Context) ([]*model.Coupon, error)
	CountUserIssuances(ctx context.Context, couponID, userID string) (int, error)
	ListIssuancesByCoupon(ctx context.Context, couponID string) ([]*model.IssuanceRecord, error)
	ListIssuancesByUser(ctx context.Context, userID string) ([]*model.IssuanceRecord, error)
}

// CouponCache is the read-side snapshot cache. May be absent.
type CouponCache interface {
	GetCoupon(ctx context.Context, id string) (*model.CachedCoupon, error)
	SetCoupon(ctx context.Context, coupon *model.Coupon) error
}

// CatalogService handles coupon catalog business logic. All reads are
// advisory: issuance decisions never go through here.
type CatalogService struct {
	store   CatalogStore
	cache   CouponCache // optional
	metrics metrics.Recorder
}

// NewCatalogService creates a new CatalogService. couponCache may be nil.
func NewCatalogService(store CatalogStore, couponCache CouponCache, recorder metrics.Recorder) *CatalogService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CatalogService{
		store:   store,
		cache:   couponCache,
		metrics: recorder,
	}
}

// CreateCouponInput defines input for creating a coupon.
type CreateCouponInput struct {
	Name       string
	TotalCount int
	MaxPerUser int // 0 means default of 1
	StartAt    time.Time
	EndAt      time.Time
}

// CreateCoupon validates the input and stores a new coupon.
func (s *CatalogService) CreateCoupon(ctx context.Context, input CreateCouponInput) (*model.Coupon, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	if input.TotalCount < 0 {
		return nil, ErrInvalidTotalCount
	}

	maxPerUser := input.MaxPerUser
	if maxPerUser == 0 {
		maxPerUser = 1
	}
	if maxPerUser < 1 {
		return nil, ErrInvalidMaxPerUser
	}

	if !input.StartAt.Before(input.EndAt) {
		return nil, ErrInvalidWindow
	}

	coupon := &model.Coupon{
		ID:         ulid.Make().String(),
		Name:       name,
		TotalCount: input.TotalCount,
		MaxPerUser: maxPerUser,
		StartAt:    input.StartAt.UTC(),
		EndAt:      input.EndAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateCoupon(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.metrics.IncCouponCreated()

	if s.cache != nil {
		// Best effort; the next read backfills on a miss.
		_ = s.cache.SetCoupon(ctx, coupon)
	}

	return coupon, nil
}

// GetCoupon retrieves a coupon by ID, cache first.
func (s *CatalogService) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCoupon(ctx, id)
		if err == nil {
			s.metrics.IncCatalogCacheHit()
			return cached.ToCoupon(id), nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncCatalogCacheMiss()
		}
	}

	coupon, err := s.store.GetCouponByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetCoupon(ctx, coupon)
	}

	return coupon, nil
}

// ListCoupons returns every coupon in insertion order.
func (s *CatalogService) ListCoupons(ctx context.Context) ([]*model.Coupon, error) {
	return s.store.ListCoupons(ctx)
}

// ListActiveCoupons returns coupons whose validity window contains now.
// Pure read: calling it repeatedly without intervening writes returns the
// same result.
func (s *CatalogService) ListActiveCoupons(ctx context.Context) ([]*model.Coupon, error) {
	coupons, err := s.store.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	active := make([]*model.Coupon, 0, len(coupons))
	for _, coupon := range coupons {
		if coupon.WindowOpen(now) {
			active = append(active, coupon)
		}
	}

	return active, nil
}

// IssuanceHistory returns all issuance records for a coupon, oldest first.
func (s *CatalogService) IssuanceHistory(ctx context.Context, couponID string) ([]*model.IssuanceRecord, error) {
	if _, err := s.store.GetCouponByID(ctx, couponID); err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	return s.store.ListIssuancesByCoupon(ctx, couponID)
}

// UserHistory returns all issuance records held by a user, oldest first.
// An unknown user simply has an empty history.
func (s *CatalogService) UserHistory(ctx context.Context, userID string) ([]*model.IssuanceRecord, error) {
	return s.store.ListIssuancesByUser(ctx, userID)
}

// UserStatus reports a user's standing against a coupon's quota. The answer
// may lag concurrent issuance; only the coordinator's view is authoritative.
func (s *CatalogService) UserStatus(ctx context.Context, couponID, userID string) (*model.UserCouponStatus, error) {
	coupon, err := s.store.GetCouponByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	held, err := s.store.CountUserIssuances(ctx, couponID, userID)
	if err != nil {
		return nil, err
	}

	return &model.UserCouponStatus{
		IssuedCount:  held,
		MaxPerUser:   coupon.MaxPerUser,
		CanIssueMore: held < coupon.MaxPerUser && !coupon.SoldOut(),
	}, nil
}
