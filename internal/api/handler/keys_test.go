package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-gitops/grocyscan/internal/api/handler"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

type fakeKeyStore struct {
	created []*models.APIKey
	revoked []uuid.UUID
}

func (f *fakeKeyStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	f.created = append(f.created, key)
	return nil
}

func (f *fakeKeyStore) ListAPIKeys(_ context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range f.created {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKeyStore) RevokeAPIKey(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	for _, k := range f.created {
		if k.ID == id && k.TenantID == tenantID {
			f.revoked = append(f.revoked, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func TestCreateKeyHandler(t *testing.T) {
	fs := &fakeKeyStore{}
	tenantID := uuid.New()
	req := withTenant(httptest.NewRequest("POST", "/api/v1/admin/keys",
		strings.NewReader(`{"name":"scanner-app","scopes":["default"]}`)), tenantID)
	w := httptest.NewRecorder()
	handler.NewCreateKeyHandler(fs)(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := dataBody(t, w)
	rawKey := data["key"].(string)
	assert.Len(t, rawKey, 64)
	assert.Equal(t, rawKey[:8], data["key_prefix"])

	// Only the hash is persisted, and it verifies against the raw key.
	require.Len(t, fs.created, 1)
	stored := fs.created[0]
	assert.NotContains(t, w.Body.String(), stored.KeyHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.KeyHash), []byte(rawKey)))
}

func TestCreateKeyHandler_NameRequired(t *testing.T) {
	req := withTenant(httptest.NewRequest("POST", "/api/v1/admin/keys",
		strings.NewReader(`{}`)), uuid.New())
	w := httptest.NewRecorder()
	handler.NewCreateKeyHandler(&fakeKeyStore{})(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListKeysHandler_EmptyIsArray(t *testing.T) {
	req := withTenant(httptest.NewRequest("GET", "/api/v1/admin/keys", nil), uuid.New())
	w := httptest.NewRecorder()
	handler.NewListKeysHandler(&fakeKeyStore{})(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestRevokeKeyHandler(t *testing.T) {
	fs := &fakeKeyStore{}
	tenantID := uuid.New()
	key := &models.APIKey{ID: uuid.New(), TenantID: tenantID}
	fs.created = append(fs.created, key)

	r := chi.NewRouter()
	r.Delete("/api/v1/admin/keys/{keyID}", handler.NewRevokeKeyHandler(fs))

	req := withTenant(httptest.NewRequest("DELETE", "/api/v1/admin/keys/"+key.ID.String(), nil), tenantID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{key.ID}, fs.revoked)

	// Another tenant cannot revoke it.
	req = withTenant(httptest.NewRequest("DELETE", "/api/v1/admin/keys/"+key.ID.String(), nil), uuid.New())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
