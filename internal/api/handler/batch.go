package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// BatchReader defines the store surface the batch handlers depend on.
type BatchReader interface {
	GetBatch(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error)
	ListBatchTokens(ctx context.Context, batchID uuid.UUID) ([]*models.Token, error)
	MarkBatchPrinted(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error)
}

// NewGetBatchHandler returns an http.HandlerFunc for
// GET /api/v1/batches/{batchID}, including all of the batch's tokens.
func NewGetBatchHandler(s BatchReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "batchID must be a UUID", nil)
			return
		}

		batch, err := s.GetBatch(r.Context(), batchID, tenantID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "BATCH_NOT_FOUND", "Batch not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		tokens, err := s.ListBatchTokens(r.Context(), batch.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		views := make([]tokenView, len(tokens))
		for i, t := range tokens {
			views[i] = tokenView{ID: t.ID, FullCode: t.FullCode, State: string(t.State)}
		}
		response.JSON(w, mintResponse{Batch: newBatchView(batch), Tokens: views})
	}
}

// NewMarkBatchPrintedHandler returns an http.HandlerFunc for
// POST /api/v1/batches/{batchID}/printed. Marking is idempotent; the first
// printed_at timestamp sticks.
func NewMarkBatchPrintedHandler(s BatchReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "batchID must be a UUID", nil)
			return
		}

		batch, err := s.MarkBatchPrinted(r.Context(), batchID, tenantID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "BATCH_NOT_FOUND", "Batch not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, newBatchView(batch))
	}
}
