package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/couponbox/couponbox/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for coupon repository operations.
var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrSoldOut        = errors.New("coupon sold out")
	ErrQuotaExceeded  = errors.New("user quota exceeded")
)

// CreateCoupon inserts a new coupon into the database.
func (r *Repository) CreateCoupon(ctx context.Context, coupon *model.Coupon) error {
	query := `
		INSERT INTO coupons (id, name, total_count, issued_count, max_per_user, start_at, end_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		coupon.ID,
		coupon.Name,
		coupon.TotalCount,
		coupon.IssuedCount,
		coupon.MaxPerUser,
		coupon.StartAt,
		coupon.EndAt,
		coupon.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

// GetCouponByID retrieves a coupon by its ID.
func (r *Repository) GetCouponByID(ctx context.Context, id string) (*model.Coupon, error) {
	query := `
		SELECT id, name, total_count, issued_count, max_per_user, start_at, end_at, created_at
		FROM coupons
		WHERE id = $1
	`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon by ID: %w", err)
	}

	return coupon, nil
}

// ListCoupons retrieves all coupons in insertion order.
func (r *Repository) ListCoupons(ctx context.Context) ([]*model.Coupon, error) {
	query := `
		SELECT id, name, total_count, issued_count, max_per_user, start_at, end_at, created_at
		FROM coupons
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*model.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

// CountCoupons returns the total number of coupons.
func (r *Repository) CountCoupons(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupons: %w", err)
	}
	return count, nil
}

// scanCoupon scans a single row into a Coupon model.
func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var coupon model.Coupon
	err := row.Scan(
		&coupon.ID,
		&coupon.Name,
		&coupon.TotalCount,
		&coupon.IssuedCount,
		&coupon.MaxPerUser,
		&coupon.StartAt,
		&coupon.EndAt,
		&coupon.CreatedAt,
	)
	return &coupon, err
}
