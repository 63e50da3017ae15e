package auth

import (
	"net/http"
	"strings"

	"github.com/verawork/vera-backend/internal/auth/jwt"
	"github.com/verawork/vera-backend/pkg/errors"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// PrivilegedRoles may manage other employees' shifts and run payroll.
var PrivilegedRoles = map[string]bool{
	"admin":   true,
	"manager": true,
}

// IsPrivileged reports whether the role may act on behalf of other employees.
func IsPrivileged(role string) bool {
	return PrivilegedRoles[role]
}

// Middleware validates the bearer token and populates user and tenant context.
func Middleware(manager *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization token"))
				return
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			if claims.EmployeeID != "" {
				ctx = httputil.WithEmployeeID(ctx, claims.EmployeeID)
			}
			ctx = tenant.WithTenantID(ctx, claims.TenantID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrivileged rejects requests from roles outside admin and manager.
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsPrivileged(httputil.GetUserRole(r.Context())) {
			httputil.Error(w, errors.Forbidden("insufficient permissions"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin roles.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httputil.GetUserRole(r.Context()) != "admin" {
			httputil.Error(w, errors.Forbidden("insufficient permissions"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
