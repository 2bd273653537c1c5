// Package mint orchestrates batch creation: bounds the requested quantity,
// picks the namespace, and delegates the transactional work to the store.
package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// ErrQuantityOutOfRange is returned when a mint request falls outside the
// configured per-call bound.
var ErrQuantityOutOfRange = errors.New("quantity out of range")

// recheckTimeout bounds the read-your-own-write check after a deadline
// expires mid-commit.
const recheckTimeout = 5 * time.Second

// BatchStore is the slice of the store the minter needs.
type BatchStore interface {
	MintBatch(ctx context.Context, batch *models.Batch) ([]*models.Token, error)
	GetBatch(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error)
	ListBatchTokens(ctx context.Context, batchID uuid.UUID) ([]*models.Token, error)
}

// NamespaceResolver supplies the tenant's default namespace when a mint
// request does not name one.
type NamespaceResolver interface {
	Default(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error)
}

// Minter mints printable token batches.
type Minter struct {
	store       BatchStore
	namespaces  NamespaceResolver
	maxQuantity int
}

// New creates a Minter. maxQuantity caps a single mint call.
func New(s BatchStore, ns NamespaceResolver, maxQuantity int) *Minter {
	return &Minter{store: s, namespaces: ns, maxQuantity: maxQuantity}
}

// Result is a minted batch with its tokens in creation order, ready for
// label-sheet generation.
type Result struct {
	Batch  *models.Batch
	Tokens []*models.Token
}

// Mint creates quantity tokens in the given namespace, or in the tenant's
// default namespace when namespaceID is nil. The batch and all its tokens
// become visible atomically.
//
// If the context deadline expires while the store commit is in flight, Mint
// re-checks (on a fresh context) whether the batch actually committed before
// reporting failure, so a retrying caller cannot double-mint.
func (m *Minter) Mint(ctx context.Context, tenantID uuid.UUID, namespaceID *uuid.UUID, quantity int) (*Result, error) {
	if quantity < 1 || quantity > m.maxQuantity {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrQuantityOutOfRange, quantity, m.maxQuantity)
	}

	nsID := uuid.Nil
	if namespaceID != nil {
		nsID = *namespaceID
	} else {
		ns, err := m.namespaces.Default(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("resolve default namespace: %w", err)
		}
		nsID = ns.ID
	}

	batch := &models.Batch{
		ID:          uuid.New(),
		TenantID:    tenantID,
		NamespaceID: nsID,
		Quantity:    quantity,
		CreatedAt:   time.Now().UTC(),
	}

	tokens, err := m.store.MintBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if result, ok := m.recoverCommitted(batch, tenantID); ok {
				return result, nil
			}
		}
		return nil, err
	}

	return &Result{Batch: batch, Tokens: tokens}, nil
}

// recoverCommitted reports whether the batch made it into the store despite
// the caller's deadline expiring, returning the committed result if so.
func (m *Minter) recoverCommitted(batch *models.Batch, tenantID uuid.UUID) (*Result, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), recheckTimeout)
	defer cancel()

	committed, err := m.store.GetBatch(ctx, batch.ID, tenantID)
	if err != nil {
		return nil, false
	}
	tokens, err := m.store.ListBatchTokens(ctx, batch.ID)
	if err != nil {
		return nil, false
	}
	return &Result{Batch: committed, Tokens: tokens}, true
}
