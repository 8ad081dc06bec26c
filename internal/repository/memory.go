package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/couponbox/couponbox/internal/model"
)

// Memory is an in-process store with the same semantics as Repository.
// It backs unit tests and lets the issuance properties run deterministically
// without external services. All methods are safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	coupons   map[string]*model.Coupon
	issuances []*model.IssuanceRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{coupons: make(map[string]*model.Coupon)}
}

// CreateCoupon stores a copy of the coupon.
func (m *Memory) CreateCoupon(_ context.Context, coupon *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *coupon
	m.coupons[c.ID] = &c
	return nil
}

// GetCouponByID returns a copy of the coupon or ErrCouponNotFound.
func (m *Memory) GetCouponByID(_ context.Context, id string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coupon, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}

	c := *coupon
	return &c, nil
}

// ListCoupons returns all coupons in insertion order.
func (m *Memory) ListCoupons(_ context.Context) ([]*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coupons := make([]*model.Coupon, 0, len(m.coupons))
	for _, coupon := range m.coupons {
		c := *coupon
		coupons = append(coupons, &c)
	}

	sort.Slice(coupons, func(i, j int) bool {
		if !coupons[i].CreatedAt.Equal(coupons[j].CreatedAt) {
			return coupons[i].CreatedAt.Before(coupons[j].CreatedAt)
		}
		return coupons[i].ID < coupons[j].ID
	})

	return coupons, nil
}

// CountCoupons returns the number of stored coupons.
func (m *Memory) CountCoupons(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.coupons), nil
}

// CountUserIssuances returns how many records a user holds for one coupon.
func (m *Memory) CountUserIssuances(_ context.Context, couponID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUserLocked(couponID, userID), nil
}

// ListIssuancesByCoupon returns all records for a coupon, oldest first.
func (m *Memory) ListIssuancesByCoupon(_ context.Context, couponID string) ([]*model.IssuanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*model.IssuanceRecord
	for _, rec := range m.issuances {
		if rec.CouponID == couponID {
			r := *rec
			records = append(records, &r)
		}
	}
	return records, nil
}

// ListIssuancesByUser returns all records held by a user, oldest first.
func (m *Memory) ListIssuancesByUser(_ context.Context, userID string) ([]*model.IssuanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*model.IssuanceRecord
	for _, rec := range m.issuances {
		if rec.UserID == userID {
			r := *rec
			records = append(records, &r)
		}
	}
	return records, nil
}

// RecordIssuance commits one issuance atomically: the counter bump and the
// ledger append happen under one lock, or neither happens.
func (m *Memory) RecordIssuance(_ context.Context, rec *model.IssuanceRecord, maxPerUser int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coupon, ok := m.coupons[rec.CouponID]
	if !ok {
		return ErrCouponNotFound
	}
	if coupon.IssuedCount >= coupon.TotalCount {
		return ErrSoldOut
	}
	if m.countUserLocked(rec.CouponID, rec.UserID) >= maxPerUser {
		return ErrQuotaExceeded
	}

	coupon.IssuedCount++
	r := *rec
	m.issuances = append(m.issuances, &r)
	return nil
}

func (m *Memory) countUserLocked(couponID, userID string) int {
	count := 0
	for _, rec := range m.issuances {
		if rec.CouponID == couponID && rec.UserID == userID {
			count++
		}
	}
	return count
}
