package registry_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-gitops/grocyscan/internal/registry"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// fakeNamespaceStore is an in-memory NamespaceStore keyed by code.
type fakeNamespaceStore struct {
	byCode     map[string]*models.Namespace
	failCreate int // number of creates to reject with ErrDuplicateKey
}

func newFakeStore() *fakeNamespaceStore {
	return &fakeNamespaceStore{byCode: map[string]*models.Namespace{}}
}

func (f *fakeNamespaceStore) CreateNamespace(_ context.Context, ns *models.Namespace) error {
	if f.failCreate > 0 {
		f.failCreate--
		return store.ErrDuplicateKey
	}
	if _, exists := f.byCode[ns.Code]; exists {
		return store.ErrDuplicateKey
	}
	f.byCode[ns.Code] = ns
	return nil
}

func (f *fakeNamespaceStore) GetNamespaceByCode(_ context.Context, nsCode string) (*models.Namespace, error) {
	ns, ok := f.byCode[nsCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ns, nil
}

func (f *fakeNamespaceStore) GetDefaultNamespace(_ context.Context, tenantID uuid.UUID) (*models.Namespace, error) {
	for _, ns := range f.byCode {
		if ns.TenantID == tenantID && ns.IsDefault {
			return ns, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeNamespaceStore) ListNamespaces(_ context.Context, tenantID uuid.UUID) ([]*models.Namespace, error) {
	var out []*models.Namespace
	for _, ns := range f.byCode {
		if ns.TenantID == tenantID {
			out = append(out, ns)
		}
	}
	return out, nil
}

func TestCreate(t *testing.T) {
	fs := newFakeStore()
	r := registry.New(fs)
	tenantID := uuid.New()

	ns, err := r.Create(context.Background(), tenantID, "kitchen", true)
	require.NoError(t, err)
	assert.Len(t, ns.Code, code.NamespaceLen)
	for i := 0; i < len(ns.Code); i++ {
		assert.True(t, code.IsSymbol(ns.Code[i]))
	}
	assert.Equal(t, tenantID, ns.TenantID)
	assert.True(t, ns.IsDefault)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	fs := newFakeStore()
	fs.failCreate = 3
	r := registry.New(fs)

	ns, err := r.Create(context.Background(), uuid.New(), "pantry", false)
	require.NoError(t, err)
	assert.NotEmpty(t, ns.Code)
	assert.Zero(t, fs.failCreate, "all rejected attempts should be consumed")
}

func TestCreate_SpaceExhausted(t *testing.T) {
	fs := newFakeStore()
	fs.failCreate = 1000 // reject more creates than the retry bound
	r := registry.New(fs)

	_, err := r.Create(context.Background(), uuid.New(), "doomed", false)
	assert.ErrorIs(t, err, registry.ErrSpaceExhausted)
}

func TestResolve(t *testing.T) {
	fs := newFakeStore()
	r := registry.New(fs)
	tenantID := uuid.New()

	ns, err := r.Create(context.Background(), tenantID, "kitchen", true)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"exact", ns.Code},
		{"lowercase", string([]byte{ns.Code[0] | 0x20, ns.Code[1] | 0x20, ns.Code[2] | 0x20})},
		{"with separators", string(ns.Code[0]) + "-" + string(ns.Code[1]) + " " + string(ns.Code[2])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, ns.ID, got.ID)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	fs := newFakeStore()
	r := registry.New(fs)

	for _, input := range []string{"K3D", "ILO", "toolong", "", "K3"} {
		_, err := r.Resolve(context.Background(), input)
		assert.ErrorIs(t, err, store.ErrNotFound, "input %q", input)
	}
}

func TestDefault(t *testing.T) {
	fs := newFakeStore()
	r := registry.New(fs)
	tenantID := uuid.New()

	_, err := r.Default(context.Background(), tenantID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Create(context.Background(), tenantID, "overflow", false)
	require.NoError(t, err)
	def, err := r.Create(context.Background(), tenantID, "kitchen", true)
	require.NoError(t, err)

	got, err := r.Default(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	all, err := r.List(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
