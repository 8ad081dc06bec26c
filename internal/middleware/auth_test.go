package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couponbox/couponbox/internal/auth"
	"github.com/couponbox/couponbox/internal/handler/dto"
)

func adminHandler(t *testing.T, adminKeyHash string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return AdminAuth(adminKeyHash, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
}

func TestAdminAuth_ValidKey(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashKey("the-admin-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	handler := adminHandler(t, hash)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"bearer", "Authorization", "Bearer the-admin-key"},
		{"x-api-key", "X-API-Key", "the-admin-key"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("POST", "/api/v1/coupons", nil)
			req.Header.Set(tt.header, tt.value)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusCreated {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
			}
		})
	}
}

func TestAdminAuth_Rejections(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashKey("the-admin-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}

	tests := []struct {
		name string
		hash string
		key  string
	}{
		{"missing key", hash, ""},
		{"wrong key", hash, "not-the-admin-key"},
		{"empty hash fails closed", "", "the-admin-key"},
		{"malformed hash", "not-a-phc-hash", "the-admin-key"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := adminHandler(t, tt.hash)

			req := httptest.NewRequest("POST", "/api/v1/coupons", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}

			var body dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode 401 body: %v", err)
			}
			if body.Code != "UNAUTHORIZED" {
				t.Errorf("Code = %q, want UNAUTHORIZED", body.Code)
			}
			if body.Error == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}
