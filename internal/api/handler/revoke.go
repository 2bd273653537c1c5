package handler

import (
	"net/http"

	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
)

// NewRevokeHandler returns an http.HandlerFunc for
// POST /api/v1/tokens/{code}/revoke. Revocation is terminal and idempotent:
// revoking an already-revoked token succeeds without changing anything.
func NewRevokeHandler(s TokenWriter, inv Invalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		token, done := loadTenantToken(w, r, s, tenantID)
		if done {
			return
		}

		revoked, err := s.RevokeToken(r.Context(), token.FullCode)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		inv.Invalidate(r.Context(), revoked.FullCode)

		response.JSON(w, revoked)
	}
}
