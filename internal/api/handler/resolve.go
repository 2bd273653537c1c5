package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/resolver"
)

// Resolver defines the interface the resolve handler depends on.
type Resolver interface {
	Resolve(ctx context.Context, raw string, currentTenant *uuid.UUID) (*resolver.Decision, error)
}

// NewResolveHandler returns an http.HandlerFunc for GET /api/v1/resolve/{code}.
//
// This endpoint is reachable without authentication, so every failure —
// malformed input, bad checksum, unknown namespace, missing token, revoked
// token — collapses into the same INVALID_CODE response. Distinguishing those
// cases here would tell an enumerating client which guesses are "close".
func NewResolveHandler(svc Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tenant *uuid.UUID
		if id, ok := mw.GetTenantID(r); ok {
			tenant = &id
		}

		decision, err := svc.Resolve(r.Context(), chi.URLParam(r, "code"), tenant)
		if err != nil {
			response.Error(w, http.StatusNotFound, "INVALID_CODE",
				"Code is not recognized", nil)
			return
		}

		response.JSON(w, decision)
	}
}
