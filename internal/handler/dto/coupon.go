// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/couponbox/couponbox/internal/model"
)

// CreateCouponRequest represents the request body for creating a coupon.
type CreateCouponRequest struct {
	Name       string    `json:"name"`
	TotalCount int       `json:"total_count"`
	MaxPerUser int       `json:"max_per_user,omitempty"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
}

// IssueRequest represents the request body for an issuance attempt.
type IssueRequest struct {
	UserID string `json:"user_id"`
}

// CouponResponse represents a coupon in API responses.
type CouponResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TotalCount  int       `json:"total_count"`
	IssuedCount int       `json:"issued_count"`
	Remaining   int       `json:"remaining"`
	MaxPerUser  int       `json:"max_per_user"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CouponListResponse represents a list of coupons.
type CouponListResponse struct {
	Data []CouponResponse `json:"data"`
}

// IssuanceResponse represents one issuance record in API responses.
type IssuanceResponse struct {
	ID       string    `json:"id"`
	CouponID string    `json:"coupon_id"`
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// IssuanceListResponse represents a list of issuance records.
type IssuanceListResponse struct {
	Data []IssuanceResponse `json:"data"`
}

// IssueResponse represents an accepted issuance attempt.
type IssueResponse struct {
	Issuance        IssuanceResponse `json:"issuance"`
	UserIssuedCount int              `json:"user_issued_count"`
	MaxPerUser      int              `json:"max_per_user"`
	Remaining       int              `json:"remaining"`
}

// UserStatusResponse represents a user's standing against one coupon.
type UserStatusResponse struct {
	CouponID     string `json:"coupon_id"`
	UserID       string `json:"user_id"`
	IssuedCount  int    `json:"issued_count"`
	MaxPerUser   int    `json:"max_per_user"`
	CanIssueMore bool   `json:"can_issue_more"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToCouponResponse converts a Coupon model to CouponResponse DTO.
func ToCouponResponse(coupon *model.Coupon, now time.Time) *CouponResponse {
	return &CouponResponse{
		ID:          coupon.ID,
		Name:        coupon.Name,
		TotalCount:  coupon.TotalCount,
		IssuedCount: coupon.IssuedCount,
		Remaining:   coupon.Remaining(),
		MaxPerUser:  coupon.MaxPerUser,
		StartAt:     coupon.StartAt,
		EndAt:       coupon.EndAt,
		Active:      coupon.WindowOpen(now) && !coupon.SoldOut(),
		CreatedAt:   coupon.CreatedAt,
	}
}

// ToCouponListResponse converts a slice of Coupon models to CouponListResponse.
func ToCouponListResponse(coupons []*model.Coupon, now time.Time) *CouponListResponse {
	responses := make([]CouponResponse, len(coupons))
	for i, coupon := range coupons {
		responses[i] = *ToCouponResponse(coupon, now)
	}
	return &CouponListResponse{Data: responses}
}

// ToIssuanceResponse converts an IssuanceRecord model to IssuanceResponse DTO.
func ToIssuanceResponse(rec *model.IssuanceRecord) IssuanceResponse {
	return IssuanceResponse{
		ID:       rec.ID,
		CouponID: rec.CouponID,
		UserID:   rec.UserID,
		IssuedAt: rec.IssuedAt,
	}
}

// ToIssuanceListResponse converts a slice of IssuanceRecord models to
// IssuanceListResponse.
func ToIssuanceListResponse(recs []*model.IssuanceRecord) *IssuanceListResponse {
	responses := make([]IssuanceResponse, len(recs))
	for i, rec := range recs {
		responses[i] = ToIssuanceResponse(rec)
	}
	return &IssuanceListResponse{Data: responses}
}
