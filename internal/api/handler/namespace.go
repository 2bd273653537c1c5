package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/registry"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// NamespaceRegistry defines the interface the namespace handlers depend on.
type NamespaceRegistry interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string, isDefault bool) (*models.Namespace, error)
	Default(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Namespace, error)
}

// NewCreateNamespaceHandler returns an http.HandlerFunc for
// POST /api/v1/namespaces.
func NewCreateNamespaceHandler(reg NamespaceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			Name      string `json:"name"`
			IsDefault bool   `json:"is_default"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}

		// The partial unique index on (tenant_id) WHERE is_default also guards
		// this, but checking up front gives the caller a usable error instead
		// of a generation-retry failure.
		if req.IsDefault {
			if _, err := reg.Default(r.Context(), tenantID); err == nil {
				response.Error(w, http.StatusConflict, "DEFAULT_EXISTS",
					"Tenant already has a default namespace", nil)
				return
			} else if !errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
				return
			}
		}

		ns, err := reg.Create(r.Context(), tenantID, req.Name, req.IsDefault)
		if err != nil {
			if errors.Is(err, registry.ErrSpaceExhausted) {
				response.Error(w, http.StatusServiceUnavailable, "NAMESPACE_SPACE_EXHAUSTED",
					"Could not allocate a namespace code, try again", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Created(w, ns)
	}
}

// NewListNamespacesHandler returns an http.HandlerFunc for
// GET /api/v1/namespaces.
func NewListNamespacesHandler(reg NamespaceRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		namespaces, err := reg.List(r.Context(), tenantID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if namespaces == nil {
			namespaces = []*models.Namespace{}
		}
		response.JSON(w, namespaces)
	}
}
