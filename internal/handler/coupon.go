package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couponbox/couponbox/internal/handler/dto"
	"github.com/couponbox/couponbox/internal/issuer"
	"github.com/couponbox/couponbox/internal/service"
)

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	svc    *service.CatalogService
	issuer *issuer.Issuer
	logger *slog.Logger
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(svc *service.CatalogService, iss *issuer.Issuer, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		svc:    svc,
		issuer: iss,
		logger: logger,
	}
}

// Create handles POST /api/v1/coupons.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateCouponInput{
		Name:       req.Name,
		TotalCount: req.TotalCount,
		MaxPerUser: req.MaxPerUser,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
	}

	coupon, err := h.svc.CreateCoupon(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("coupon_created",
		"coupon_id", coupon.ID,
		"total_count", coupon.TotalCount,
		"max_per_user", coupon.MaxPerUser,
	)

	response := dto.ToCouponResponse(coupon, time.Now().UTC())
	writeJSON(w, http.StatusCreated, response)
}

// Get handles GET /api/v1/coupons/{couponID}.
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "couponID")
	if couponID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_COUPON_ID", "Coupon ID is required")
		return
	}

	coupon, err := h.svc.GetCoupon(r.Context(), couponID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToCouponResponse(coupon, time.Now().UTC())
	writeJSON(w, http.StatusOK, response)
}

// List handles GET /api/v1/coupons.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.ListCoupons(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToCouponListResponse(coupons, time.Now().UTC())
	writeJSON(w, http.StatusOK, response)
}

// ListActive handles GET /api/v1/coupons/active.
func (h *CouponHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.ListActiveCoupons(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToCouponListResponse(coupons, time.Now().UTC())
	writeJSON(w, http.StatusOK, response)
}

// Issue handles POST /api/v1/coupons/{couponID}/issue.
func (h *CouponHandler) Issue(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "couponID")
	if couponID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_COUPON_ID", "Coupon ID is required")
		return
	}

	var req dto.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required")
		return
	}

	result, err := h.issuer.Issue(r.Context(), couponID, userID)
	if err != nil {
		h.logger.Error("issuance_failed",
			"coupon_id", couponID,
			"user_id", userID,
			"error", err,
		)
	}

	switch result.Outcome {
	case issuer.OutcomeAccepted:
		h.logger.Info("issuance_accepted",
			"coupon_id", couponID,
			"user_id", userID,
			"issuance_id", result.Record.ID,
		)
		writeJSON(w, http.StatusOK, dto.IssueResponse{
			Issuance:        dto.ToIssuanceResponse(result.Record),
			UserIssuedCount: result.UserIssuedCount,
			MaxPerUser:      result.Coupon.MaxPerUser,
			Remaining:       result.Coupon.Remaining(),
		})
	case issuer.OutcomeNotFound:
		h.writeError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "Coupon not found")
	case issuer.OutcomeOutOfWindow:
		h.writeError(w, http.StatusConflict, "OUT_OF_WINDOW", "Coupon is not open for issuance")
	case issuer.OutcomeSoldOut:
		h.writeError(w, http.StatusConflict, "SOLD_OUT", "Coupon is sold out")
	case issuer.OutcomeQuotaExceeded:
		h.writeError(w, http.StatusConflict, "QUOTA_EXCEEDED", "Per-user issuance limit reached")
	default:
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// IssuanceHistory handles GET /api/v1/coupons/{couponID}/issuances.
func (h *CouponHandler) IssuanceHistory(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "couponID")
	if couponID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_COUPON_ID", "Coupon ID is required")
		return
	}

	recs, err := h.svc.IssuanceHistory(r.Context(), couponID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToIssuanceListResponse(recs))
}

// UserStatus handles GET /api/v1/coupons/{couponID}/users/{userID}.
func (h *CouponHandler) UserStatus(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "couponID")
	userID := chi.URLParam(r, "userID")
	if couponID == "" || userID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Coupon ID and user ID are required")
		return
	}

	status, err := h.svc.UserStatus(r.Context(), couponID, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserStatusResponse{
		CouponID:     couponID,
		UserID:       userID,
		IssuedCount:  status.IssuedCount,
		MaxPerUser:   status.MaxPerUser,
		CanIssueMore: status.CanIssueMore,
	})
}

// UserHistory handles GET /api/v1/users/{userID}/issuances.
func (h *CouponHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "User ID is required")
		return
	}

	recs, err := h.svc.UserHistory(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToIssuanceListResponse(recs))
}

// handleServiceError maps service errors to HTTP responses.
func (h *CouponHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		h.writeError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "Coupon not found")
	case errors.Is(err, service.ErrInvalidName):
		h.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Coupon name is empty or too long")
	case errors.Is(err, service.ErrInvalidTotalCount):
		h.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "total_count must not be negative")
	case errors.Is(err, service.ErrInvalidMaxPerUser):
		h.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "max_per_user must be at least 1")
	case errors.Is(err, service.ErrInvalidWindow):
		h.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "start_at must be before end_at")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *CouponHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
