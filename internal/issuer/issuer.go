// Package issuer decides issuance attempts. It serializes all attempts
// against one coupon behind a per-coupon lock so every admission sees the
// latest counter and quota state.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couponbox/couponbox/internal/metrics"
	"github.com/couponbox/couponbox/internal/model"
	"github.com/couponbox/couponbox/internal/repository"
	"github.com/oklog/ulid/v2"
)

// Ledger is the durable bookkeeping the coordinator consults and writes.
// RecordIssuance must commit the counter bump and the record together, and
// must re-check capacity and quota itself: the store is the last line of
// defense if something bypasses the coordinator.
type Ledger interface {
	GetCouponByID(ctx context.Context, id string) (*model.Coupon, error)
	CountUserIssuances(ctx context.Context, couponID, userID string) (int, error)
	RecordIssuance(ctx context.Context, rec *model.IssuanceRecord, maxPerUser int) error
}

// SoldOutMarker remembers exhausted coupons so attempts can be turned away
// before the critical section. The counter never decreases, so a marker is
// trustworthy for as long as the validity window stays open; implementations
// must let it lapse at endAt so closed-window attempts reach the slow path
// and are rejected for the window, not the stock. A stale miss costs a lock
// round trip, never a wrong answer.
type SoldOutMarker interface {
	IsSoldOut(ctx context.Context, couponID string) bool
	MarkSoldOut(ctx context.Context, couponID string, endAt time.Time)
}

// Result is the terminal answer for one issuance attempt.
type Result struct {
	Outcome Outcome
	Coupon  *model.Coupon         // nil when the coupon does not exist
	Record  *model.IssuanceRecord // set only when the attempt was accepted

	// UserIssuedCount is how many units the user holds after the attempt.
	// Meaningful for accepted and quota-rejected outcomes.
	UserIssuedCount int
}

// Issuer coordinates issuance attempts.
type Issuer struct {
	ledger   Ledger
	marker   SoldOutMarker // optional
	locks    *keyMutex
	lockWait time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// New creates an Issuer. marker may be nil to disable the sold-out fast
// path. lockWait bounds how long one attempt may queue for a coupon's lock;
// zero means wait as long as the caller's context allows.
func New(ledger Ledger, marker SoldOutMarker, lockWait time.Duration, recorder metrics.Recorder, logger *slog.Logger) *Issuer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		ledger:   ledger,
		marker:   marker,
		locks:    newKeyMutex(),
		lockWait: lockWait,
		metrics:  recorder,
		logger:   logger,
	}
}

// Issue runs one issuance attempt for userID against couponID and always
// returns a terminal Result. The error is non-nil only alongside
// OutcomeInternalError and carries the cause for logging; callers decide
// from the Outcome alone.
func (i *Issuer) Issue(ctx context.Context, couponID, userID string) (*Result, error) {
	start := time.Now()
	defer func() {
		i.metrics.ObserveIssuanceDuration(time.Since(start))
	}()

	if i.marker != nil && i.marker.IsSoldOut(ctx, couponID) {
		i.metrics.IncSoldOutFastPath()
		return i.reject(OutcomeSoldOut, nil), nil
	}

	lockCtx := ctx
	if i.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, i.lockWait)
		defer cancel()
	}
	if err := i.locks.Lock(lockCtx, couponID); err != nil {
		return i.reject(OutcomeInternalError, nil), fmt.Errorf("acquire coupon lock: %w", err)
	}
	defer i.locks.Unlock(couponID)

	// Once admitted, the decision runs to its terminal outcome even if the
	// caller has gone away; a half-committed attempt must not exist.
	dctx := context.WithoutCancel(ctx)

	coupon, err := i.ledger.GetCouponByID(dctx, couponID)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return i.reject(OutcomeNotFound, nil), nil
		}
		return i.reject(OutcomeInternalError, nil), fmt.Errorf("load coupon: %w", err)
	}

	now := time.Now().UTC()
	if !coupon.WindowOpen(now) {
		return i.reject(OutcomeOutOfWindow, coupon), nil
	}

	if coupon.SoldOut() {
		i.markSoldOut(dctx, coupon)
		return i.reject(OutcomeSoldOut, coupon), nil
	}

	held, err := i.ledger.CountUserIssuances(dctx, couponID, userID)
	if err != nil {
		return i.reject(OutcomeInternalError, coupon), fmt.Errorf("count user issuances: %w", err)
	}
	if held >= coupon.MaxPerUser {
		result := i.reject(OutcomeQuotaExceeded, coupon)
		result.UserIssuedCount = held
		return result, nil
	}

	rec := &model.IssuanceRecord{
		ID:       ulid.Make().String(),
		CouponID: couponID,
		UserID:   userID,
		IssuedAt: now,
	}

	if err := i.ledger.RecordIssuance(dctx, rec, coupon.MaxPerUser); err != nil {
		switch {
		case errors.Is(err, repository.ErrSoldOut):
			i.markSoldOut(dctx, coupon)
			return i.reject(OutcomeSoldOut, coupon), nil
		case errors.Is(err, repository.ErrQuotaExceeded):
			result := i.reject(OutcomeQuotaExceeded, coupon)
			result.UserIssuedCount = held
			return result, nil
		case errors.Is(err, repository.ErrCouponNotFound):
			return i.reject(OutcomeNotFound, nil), nil
		default:
			return i.reject(OutcomeInternalError, coupon), fmt.Errorf("record issuance: %w", err)
		}
	}

	coupon.IssuedCount++
	if coupon.SoldOut() {
		i.markSoldOut(dctx, coupon)
	}

	i.metrics.IncIssuanceAccepted()
	i.logger.Debug("issuance accepted",
		slog.String("coupon_id", couponID),
		slog.String("user_id", userID),
		slog.Int("issued_count", coupon.IssuedCount),
	)

	return &Result{
		Outcome:         OutcomeAccepted,
		Coupon:          coupon,
		Record:          rec,
		UserIssuedCount: held + 1,
	}, nil
}

func (i *Issuer) reject(outcome Outcome, coupon *model.Coupon) *Result {
	i.metrics.IncIssuanceRejected(outcome.String())
	return &Result{Outcome: outcome, Coupon: coupon}
}

func (i *Issuer) markSoldOut(ctx context.Context, coupon *model.Coupon) {
	if i.marker == nil {
		return
	}
	i.marker.MarkSoldOut(ctx, coupon.ID, coupon.EndAt)
	i.logger.Info("coupon sold out", slog.String("coupon_id", coupon.ID))
}
