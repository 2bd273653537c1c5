// Package registry manages the namespace prefixes that partition the code
// space between tenants.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// maxCreateAttempts bounds the collision retry loop when generating a fresh
// namespace code. With 32,768 possible codes this is practically unreachable,
// but callers must still handle exhaustion.
const maxCreateAttempts = 10

// ErrSpaceExhausted is returned when namespace code generation keeps
// colliding with existing codes.
var ErrSpaceExhausted = errors.New("namespace code space exhausted")

// NamespaceStore is the slice of the store the registry needs.
type NamespaceStore interface {
	CreateNamespace(ctx context.Context, ns *models.Namespace) error
	GetNamespaceByCode(ctx context.Context, code string) (*models.Namespace, error)
	GetDefaultNamespace(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error)
	ListNamespaces(ctx context.Context, tenantID uuid.UUID) ([]*models.Namespace, error)
}

// Registry creates and resolves namespaces. The store's unique index on the
// namespace code is the source of truth for uniqueness; the registry only
// generates candidates and retries.
type Registry struct {
	store NamespaceStore
}

// New creates a Registry backed by the given store.
func New(s NamespaceStore) *Registry {
	return &Registry{store: s}
}

// Create provisions a namespace with a freshly generated 3-symbol code,
// retrying on collision up to maxCreateAttempts before giving up with
// ErrSpaceExhausted. Namespaces are append-only; there is no delete.
func (r *Registry) Create(ctx context.Context, tenantID uuid.UUID, name string, isDefault bool) (*models.Namespace, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		nsCode, err := code.RandomBody(code.NamespaceLen)
		if err != nil {
			return nil, fmt.Errorf("generate namespace code: %w", err)
		}

		now := time.Now().UTC()
		ns := &models.Namespace{
			ID:        uuid.New(),
			TenantID:  tenantID,
			Code:      nsCode,
			Name:      name,
			IsDefault: isDefault,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = r.store.CreateNamespace(ctx, ns)
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ns, nil
	}
	return nil, ErrSpaceExhausted
}

// Resolve looks up a namespace by its 3-symbol code. Lookup is
// case-insensitive and ignores separators, so "k3d" and "K-3-D" both resolve
// the namespace printed as K3D. Codes that cannot be normalized are treated
// as not found.
func (r *Registry) Resolve(ctx context.Context, raw string) (*models.Namespace, error) {
	nsCode, ok := normalizeCode(raw)
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.store.GetNamespaceByCode(ctx, nsCode)
}

// Default returns the tenant's default namespace for new batches.
func (r *Registry) Default(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error) {
	return r.store.GetDefaultNamespace(ctx, tenantID)
}

// List returns all namespaces owned by the tenant in creation order.
func (r *Registry) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Namespace, error) {
	return r.store.ListNamespaces(ctx, tenantID)
}

// normalizeCode uppercases and strips separators from a raw namespace code,
// reporting whether the result is exactly NamespaceLen alphabet symbols.
func normalizeCode(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(code.NamespaceLen)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch ch {
		case '-', '_', ' ', '\t', '.', '/':
			continue
		}
		if !code.IsSymbol(ch) {
			return "", false
		}
		b.WriteByte(ch)
	}
	s := strings.ToUpper(b.String())
	if len(s) != code.NamespaceLen {
		return "", false
	}
	return s, true
}
