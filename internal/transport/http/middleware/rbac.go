package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"hrperf/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission rejects requests whose role lacks permission.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Authorize(w, r, store, permission) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Authorize checks permissions for the request user in order and writes the
// failure response itself. Handlers use it for checks that depend on the payload.
func Authorize(w http.ResponseWriter, r *http.Request, store PermissionStore, permissions ...string) bool {
	requestID := GetRequestID(r.Context())
	user, ok := GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return false
	}
	for _, permission := range permissions {
		allowed, err := store.HasPermission(r.Context(), user.RoleID, permission)
		if err != nil {
			zap.L().Error("permission lookup failed", zap.String("roleId", user.RoleID), zap.String("permission", permission), zap.Error(err))
			api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
			return false
		}
		if !allowed {
			zap.L().Debug("permission denied", zap.String("userId", user.UserID), zap.String("permission", permission))
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
			return false
		}
	}
	return true
}
