package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// withTenant attaches a tenant context the way the auth middleware would.
func withTenant(req *http.Request, tenantID uuid.UUID) *http.Request {
	return req.WithContext(mw.SetTenantID(req.Context(), tenantID))
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func dataBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["data"].(map[string]any)
}

// mustFullCode builds a checksummed full code for tests.
func mustFullCode(t *testing.T, ns, body string) string {
	t.Helper()
	c, err := code.New(ns, body)
	require.NoError(t, err)
	return c.String()
}

// fakeTokenWriter is an in-memory TokenWriter keyed by full code.
type fakeTokenWriter struct {
	byFullCode map[string]*models.Token
	assignErr  error
}

func newFakeTokenWriter() *fakeTokenWriter {
	return &fakeTokenWriter{byFullCode: map[string]*models.Token{}}
}

func (f *fakeTokenWriter) GetTokenByFullCode(_ context.Context, fullCode string) (*models.Token, error) {
	token, ok := f.byFullCode[fullCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokenWriter) AssignToken(_ context.Context, fullCode string, targetType models.TargetType, targetID uuid.UUID) (*models.Token, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	token, ok := f.byFullCode[fullCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	if token.State != models.TokenStateUnassigned {
		return nil, store.ErrTokenNotUnassigned
	}
	token.State = models.TokenStateAssigned
	token.TargetType = &targetType
	token.TargetID = &targetID
	return token, nil
}

func (f *fakeTokenWriter) RevokeToken(_ context.Context, fullCode string) (*models.Token, error) {
	token, ok := f.byFullCode[fullCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	token.State = models.TokenStateRevoked
	token.TargetType = nil
	token.TargetID = nil
	return token, nil
}

// spyInvalidator records invalidated full codes.
type spyInvalidator struct {
	invalidated []string
}

func (s *spyInvalidator) Invalidate(_ context.Context, fullCode string) {
	s.invalidated = append(s.invalidated, fullCode)
}
