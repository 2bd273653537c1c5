// Package handler contains the HTTP handlers. Each handler is constructed
// from the narrow interface it needs, so tests can drive them with fakes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/mint"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// Minter defines the interface the mint handler depends on.
type Minter interface {
	Mint(ctx context.Context, tenantID uuid.UUID, namespaceID *uuid.UUID, quantity int) (*mint.Result, error)
}

type tokenView struct {
	ID       uuid.UUID `json:"id"`
	FullCode string    `json:"full_code"`
	State    string    `json:"state"`
}

type batchView struct {
	ID          uuid.UUID  `json:"id"`
	NamespaceID uuid.UUID  `json:"namespace_id"`
	Quantity    int        `json:"quantity"`
	CreatedAt   time.Time  `json:"created_at"`
	PrintedAt   *time.Time `json:"printed_at,omitempty"`
}

type mintResponse struct {
	Batch  batchView   `json:"batch"`
	Tokens []tokenView `json:"tokens"`
}

// NewMintHandler returns an http.HandlerFunc for POST /api/v1/mint. Tokens
// are returned in creation order, ready to feed a label sheet.
func NewMintHandler(svc Minter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			NamespaceID *uuid.UUID `json:"namespace_id"`
			Quantity    int        `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Mint(r.Context(), tenantID, req.NamespaceID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, mint.ErrQuantityOutOfRange):
				response.Error(w, http.StatusBadRequest, "QUANTITY_OUT_OF_RANGE",
					"quantity must be between 1 and the configured maximum", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NAMESPACE_NOT_FOUND",
					"Namespace not found and no default namespace is configured", nil)
			case errors.Is(err, store.ErrMintFailed):
				response.Error(w, http.StatusServiceUnavailable, "MINT_FAILED",
					"Could not generate unique codes, try again", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		tokens := make([]tokenView, len(result.Tokens))
		for i, t := range result.Tokens {
			tokens[i] = tokenView{ID: t.ID, FullCode: t.FullCode, State: string(t.State)}
		}
		response.Created(w, mintResponse{
			Batch:  newBatchView(result.Batch),
			Tokens: tokens,
		})
	}
}

func newBatchView(b *models.Batch) batchView {
	return batchView{
		ID:          b.ID,
		NamespaceID: b.NamespaceID,
		Quantity:    b.Quantity,
		CreatedAt:   b.CreatedAt,
		PrintedAt:   b.PrintedAt,
	}
}
