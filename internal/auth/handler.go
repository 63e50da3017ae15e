package auth

import (
	"net/http"

	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// MeResponse describes the authenticated account.
type MeResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   string `json:"tenant_id"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// Me returns the identity claims of the current request.
func Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, _ := tenant.TenantID(ctx)

	httputil.JSON(w, http.StatusOK, MeResponse{
		UserID:     httputil.GetUserID(ctx),
		Email:      httputil.GetUserEmail(ctx),
		Role:       httputil.GetUserRole(ctx),
		TenantID:   tenantID,
		EmployeeID: httputil.GetEmployeeID(ctx),
	})
}
