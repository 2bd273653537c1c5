package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// TokenWriter defines the store surface the assign/revoke handlers depend on.
type TokenWriter interface {
	GetTokenByFullCode(ctx context.Context, fullCode string) (*models.Token, error)
	AssignToken(ctx context.Context, fullCode string, targetType models.TargetType, targetID uuid.UUID) (*models.Token, error)
	RevokeToken(ctx context.Context, fullCode string) (*models.Token, error)
}

// Invalidator drops cached token lookups after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, fullCode string)
}

// NewAssignHandler returns an http.HandlerFunc for
// POST /api/v1/tokens/{code}/assign. Assigning the same target again is a
// no-op success; any other state conflict is 409.
func NewAssignHandler(s TokenWriter, inv Invalidator) http.HandlerFunc {
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

		var req struct {
			TargetType string    `json:"target_type"`
			TargetID   uuid.UUID `json:"target_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		targetType, err := models.ParseTargetType(req.TargetType)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"target_type must be one of container, product_instance, location", nil)
			return
		}
		if req.TargetID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "target_id is required", nil)
			return
		}

		if token.State == models.TokenStateRevoked {
			response.Error(w, http.StatusConflict, "TOKEN_REVOKED", "Token has been revoked", nil)
			return
		}

		updated, err := s.AssignToken(r.Context(), token.FullCode, targetType, req.TargetID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrTokenNotUnassigned):
				response.Error(w, http.StatusConflict, "TOKEN_NOT_UNASSIGNED",
					"Token is already assigned to a different target", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		inv.Invalidate(r.Context(), updated.FullCode)

		response.JSON(w, updated)
	}
}

// loadTenantToken normalizes the {code} URL param and loads the token,
// writing the error response itself when anything fails. Tokens owned by a
// different tenant are reported as not found so mutation endpoints cannot be
// used to probe other tenants' code space.
func loadTenantToken(w http.ResponseWriter, r *http.Request, s TokenWriter, tenantID uuid.UUID) (*models.Token, bool) {
	c, err := code.Normalize(chi.URLParam(r, "code"))
	if err != nil {
		switch {
		case errors.Is(err, code.ErrInvalidChecksum):
			response.Error(w, http.StatusBadRequest, "INVALID_CHECKSUM",
				"Code checksum does not verify, check for typos", nil)
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_FORMAT",
				"Code is not a valid token code", nil)
		}
		return nil, true
	}

	token, err := s.GetTokenByFullCode(r.Context(), c.String())
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found", nil)
		return nil, true
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
		return nil, true
	}
	if token.TenantID != tenantID {
		response.Error(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found", nil)
		return nil, true
	}
	return token, false
}
