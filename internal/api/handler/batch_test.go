package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-gitops/grocyscan/internal/api/handler"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/models"
)

type fakeBatchReader struct {
	batch  *models.Batch
	tokens []*models.Token
}

func (f *fakeBatchReader) GetBatch(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error) {
	if f.batch == nil || f.batch.ID != id || f.batch.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return f.batch, nil
}

func (f *fakeBatchReader) ListBatchTokens(_ context.Context, _ uuid.UUID) ([]*models.Token, error) {
	return f.tokens, nil
}

func (f *fakeBatchReader) MarkBatchPrinted(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error) {
	batch, err := f.GetBatch(context.Background(), id, tenantID)
	if err != nil {
		return nil, err
	}
	if batch.PrintedAt == nil {
		now := time.Now().UTC()
		batch.PrintedAt = &now
	}
	return batch, nil
}

func batchRequest(h http.HandlerFunc, method, path string, tenantID uuid.UUID) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, "/api/v1/batches/{batchID}", h)
	r.MethodFunc(method, "/api/v1/batches/{batchID}/printed", h)

	req := withTenant(httptest.NewRequest(method, path, nil), tenantID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetBatchHandler(t *testing.T) {
	tenantID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), TenantID: tenantID, Quantity: 2}
	fb := &fakeBatchReader{batch: batch, tokens: []*models.Token{
		{ID: uuid.New(), FullCode: mustFullCode(t, "K3D", "7K3QF"), State: models.TokenStateUnassigned},
		{ID: uuid.New(), FullCode: mustFullCode(t, "K3D", "AAAAA"), State: models.TokenStateAssigned},
	}}

	w := batchRequest(handler.NewGetBatchHandler(fb), "GET",
		"/api/v1/batches/"+batch.ID.String(), tenantID)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Len(t, data["tokens"].([]any), 2)
}

func TestGetBatchHandler_OtherTenantNotFound(t *testing.T) {
	batch := &models.Batch{ID: uuid.New(), TenantID: uuid.New()}
	fb := &fakeBatchReader{batch: batch}

	w := batchRequest(handler.NewGetBatchHandler(fb), "GET",
		"/api/v1/batches/"+batch.ID.String(), uuid.New())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BATCH_NOT_FOUND", errBody(t, w)["code"])
}

func TestGetBatchHandler_BadID(t *testing.T) {
	w := batchRequest(handler.NewGetBatchHandler(&fakeBatchReader{}), "GET",
		"/api/v1/batches/not-a-uuid", uuid.New())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkBatchPrintedHandler(t *testing.T) {
	tenantID := uuid.New()
	batch := &models.Batch{ID: uuid.New(), TenantID: tenantID}
	fb := &fakeBatchReader{batch: batch}
	h := handler.NewMarkBatchPrintedHandler(fb)

	w := batchRequest(h, "POST", "/api/v1/batches/"+batch.ID.String()+"/printed", tenantID)
	require.Equal(t, http.StatusOK, w.Code)
	first := dataBody(t, w)["printed_at"]
	require.NotNil(t, first)

	// Marking again keeps the original timestamp.
	w = batchRequest(h, "POST", "/api/v1/batches/"+batch.ID.String()+"/printed", tenantID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, dataBody(t, w)["printed_at"])
}
