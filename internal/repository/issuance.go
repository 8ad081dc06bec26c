package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/couponbox/couponbox/internal/model"
	"github.com/jackc/pgx/v5"
)

// CountUserIssuances returns how many records a user holds for one coupon.
func (r *Repository) CountUserIssuances(ctx context.Context, couponID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM issuances WHERE coupon_id = $1 AND user_id = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user issuances: %w", err)
	}

	return count, nil
}

// ListIssuancesByCoupon retrieves all issuance records for a coupon,
// oldest first.
func (r *Repository) ListIssuancesByCoupon(ctx context.Context, couponID string) ([]*model.IssuanceRecord, error) {
	query := `
		SELECT id, coupon_id, user_id, issued_at
		FROM issuances
		WHERE coupon_id = $1
		ORDER BY issued_at ASC, id ASC
	`

	return r.listIssuances(ctx, query, couponID)
}

// ListIssuancesByUser retrieves all issuance records held by a user,
// oldest first.
func (r *Repository) ListIssuancesByUser(ctx context.Context, userID string) ([]*model.IssuanceRecord, error) {
	query := `
		SELECT id, coupon_id, user_id, issued_at
		FROM issuances
		WHERE user_id = $1
		ORDER BY issued_at ASC, id ASC
	`

	return r.listIssuances(ctx, query, userID)
}

func (r *Repository) listIssuances(ctx context.Context, query string, arg any) ([]*model.IssuanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuances: %w", err)
	}
	defer rows.Close()

	var records []*model.IssuanceRecord
	for rows.Next() {
		var rec model.IssuanceRecord
		if err := rows.Scan(&rec.ID, &rec.CouponID, &rec.UserID, &rec.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issuance: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issuances: %w", err)
	}

	return records, nil
}

// RecordIssuance commits one issuance as a single transaction: it re-reads
// the coupon row under a row lock, bumps issued_count only while capacity
// remains, and appends the ledger record only while the user is under quota.
// Both writes land together or not at all.
func (r *Repository) RecordIssuance(ctx context.Context, rec *model.IssuanceRecord, maxPerUser int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin issuance tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent committers on the same coupon even if
	// a caller bypasses the coordinator's in-process mutex.
	var issued, total int
	err = tx.QueryRow(ctx,
		`SELECT issued_count, total_count FROM coupons WHERE id = $1 FOR UPDATE`,
		rec.CouponID,
	).Scan(&issued, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("failed to lock coupon row: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE coupons SET issued_count = issued_count + 1 WHERE id = $1 AND issued_count < total_count`,
		rec.CouponID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment issued count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSoldOut
	}

	// Quota re-check inside the same tx guards against committers that
	// raced past the coordinator.
	result, err = tx.Exec(ctx, `
		INSERT INTO issuances (id, coupon_id, user_id, issued_at)
		SELECT $1, $2, $3, $4
		WHERE (SELECT COUNT(*) FROM issuances WHERE coupon_id = $2 AND user_id = $3) < $5
	`,
		rec.ID, rec.CouponID, rec.UserID, rec.IssuedAt, maxPerUser,
	)
	if err != nil {
		return fmt.Errorf("failed to insert issuance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit issuance: %w", err)
	}

	return nil
}
