package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couponbox/couponbox/internal/auth"
	"github.com/couponbox/couponbox/internal/handler/dto"
)

// AdminAuth returns a middleware that guards admin routes with a single
// pre-hashed API key. adminKeyHash is the argon2id PHC hash from config;
// when it is empty every request is rejected, so a misconfigured deployment
// fails closed.
func AdminAuth(adminKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)

			if adminKeyHash == "" || key == "" {
				logAuthFailure(logger, r, "missing_key")
				writeAuthError(w)
				return
			}

			match, err := auth.VerifyKey(key, adminKeyHash)
			if err != nil || !match {
				logAuthFailure(logger, r, "invalid_key")
				writeAuthError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey extracts the API key from the request.
// Supports both "Authorization: Bearer <key>" and "X-API-Key: <key>" headers.
func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.Header.Get("X-API-Key")
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("admin authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error: "Invalid or missing API key",
		Code:  "UNAUTHORIZED",
	})
}
