package middleware

import (
	"net/http"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

// RequireRole is a middleware that ensures the user has at least the specified role
func RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: No user found", http.StatusUnauthorized)
				return
			}
			if !models.IsRoleAtLeast(identity.Role, requiredRole) {
				logging.FromContext(r.Context()).WithField("role", identity.Role).Infof("Denied: %s required", requiredRole)
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
