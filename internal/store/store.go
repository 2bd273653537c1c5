package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/w-gitops/grocyscan/pkg/models"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrTokenNotUnassigned is returned when an assign races or re-targets a
	// token that already left the unassigned state.
	ErrTokenNotUnassigned = errors.New("token is not unassigned")

	// ErrMintFailed is returned when code generation exhausts its bounded
	// collision retries.
	ErrMintFailed = errors.New("batch mint failed")
)

// Store is the data access interface. All database operations go through
// here; it is the single source of truth for token and namespace uniqueness.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateNamespace(ctx context.Context, ns *models.Namespace) error
	GetNamespace(ctx context.Context, id uuid.UUID) (*models.Namespace, error)
	GetNamespaceByCode(ctx context.Context, code string) (*models.Namespace, error)
	GetDefaultNamespace(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error)
	ListNamespaces(ctx context.Context, tenantID uuid.UUID) ([]*models.Namespace, error)

	MintBatch(ctx context.Context, batch *models.Batch) ([]*models.Token, error)
	GetTokenByFullCode(ctx context.Context, fullCode string) (*models.Token, error)
	AssignToken(ctx context.Context, fullCode string, targetType models.TargetType, targetID uuid.UUID) (*models.Token, error)
	RevokeToken(ctx context.Context, fullCode string) (*models.Token, error)

	GetBatch(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error)
	ListBatchTokens(ctx context.Context, batchID uuid.UUID) ([]*models.Token, error)
	MarkBatchPrinted(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error)
}
