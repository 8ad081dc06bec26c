// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// Coupon is a capacity-bounded, time-windowed promotional entitlement.
// IssuedCount only ever increases, and only through the issuer's atomic
// commit; it must never exceed TotalCount.
type Coupon struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TotalCount  int       `json:"total_count"`
	IssuedCount int       `json:"issued_count"`
	MaxPerUser  int       `json:"max_per_user"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// WindowOpen reports whether now falls inside the validity window.
// The window is half-open: [StartAt, EndAt).
func (c *Coupon) WindowOpen(now time.Time) bool {
	return !now.Before(c.StartAt) && now.Before(c.EndAt)
}

// SoldOut reports whether the pool is exhausted.
func (c *Coupon) SoldOut() bool {
	return c.IssuedCount >= c.TotalCount
}

// Remaining returns the number of units still available.
func (c *Coupon) Remaining() int {
	if c.SoldOut() {
		return 0
	}
	return c.TotalCount - c.IssuedCount
}

// IssuanceRecord is one permanent entry in the issuance ledger.
// Records are append-only: created exactly once per successful issuance,
// never updated or deleted.
type IssuanceRecord struct {
	ID       string    `json:"id"`
	CouponID string    `json:"coupon_id"`
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// UserCouponStatus is the read-only projection of one user's standing
// against one coupon's quota.
type UserCouponStatus struct {
	IssuedCount  int  `json:"issued_count"`
	MaxPerUser   int  `json:"max_per_user"`
	CanIssueMore bool `json:"can_issue_more"`
}

// CachedCoupon represents coupon data stored in Redis.
// Uses string types for Redis hash compatibility.
type CachedCoupon struct {
	Name        string `redis:"name"`
	TotalCount  string `redis:"total_count"`
	IssuedCount string `redis:"issued_count"`
	MaxPerUser  string `redis:"max_per_user"`
	StartAt     string `redis:"start_at"`   // Unix timestamp
	EndAt       string `redis:"end_at"`     // Unix timestamp
	CreatedAt   string `redis:"created_at"` // Unix timestamp
}

// ToCoupon converts CachedCoupon to the Coupon domain model.
func (c *CachedCoupon) ToCoupon(id string) *Coupon {
	coupon := &Coupon{
		ID:   id,
		Name: c.Name,
	}

	if n, err := strconv.Atoi(c.TotalCount); err == nil {
		coupon.TotalCount = n
	}
	if n, err := strconv.Atoi(c.IssuedCount); err == nil {
		coupon.IssuedCount = n
	}
	if n, err := strconv.Atoi(c.MaxPerUser); err == nil {
		coupon.MaxPerUser = n
	}
	if ts, err := strconv.ParseInt(c.StartAt, 10, 64); err == nil {
		coupon.StartAt = time.Unix(ts, 0).UTC()
	}
	if ts, err := strconv.ParseInt(c.EndAt, 10, 64); err == nil {
		coupon.EndAt = time.Unix(ts, 0).UTC()
	}
	if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
		coupon.CreatedAt = time.Unix(ts, 0).UTC()
	}

	return coupon
}

// ToCachedCoupon converts the Coupon domain model to its Redis projection.
func (c *Coupon) ToCachedCoupon() *CachedCoupon {
	return &CachedCoupon{
		Name:        c.Name,
		TotalCount:  strconv.Itoa(c.TotalCount),
		IssuedCount: strconv.Itoa(c.IssuedCount),
		MaxPerUser:  strconv.Itoa(c.MaxPerUser),
		StartAt:     strconv.FormatInt(c.StartAt.Unix(), 10),
		EndAt:       strconv.FormatInt(c.EndAt.Unix(), 10),
		CreatedAt:   strconv.FormatInt(c.CreatedAt.Unix(), 10),
	}
}
