// Package resolver implements the scan-to-target resolution protocol: it
// turns raw scanner input into a routing decision without ever leaking target
// details across tenant boundaries.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/w-gitops/grocyscan/internal/cache"
	"github.com/w-gitops/grocyscan/internal/store"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

var (
	ErrUnknownNamespace = errors.New("unknown namespace")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenRevoked     = errors.New("token revoked")
)

// Outcome classifies a successful resolution.
type Outcome string

const (
	// OutcomeResolved carries the token's target for the caller's tenant.
	OutcomeResolved Outcome = "resolved"
	// OutcomeUnassigned means a valid pre-printed code not yet bound to anything.
	OutcomeUnassigned Outcome = "unassigned"
	// OutcomeTenantNotSelected means the caller has no active tenant context.
	OutcomeTenantNotSelected Outcome = "tenant_not_selected"
	// OutcomeTenantMismatch means the code belongs to a different tenant.
	OutcomeTenantMismatch Outcome = "tenant_mismatch"
)

// Decision is the routing decision for one resolution request. Target fields
// are populated only for OutcomeResolved; OwnerTenantID only for
// OutcomeTenantMismatch, so a mismatch can prompt a context switch without
// revealing what the code points at.
type Decision struct {
	Outcome       Outcome            `json:"outcome"`
	FullCode      string             `json:"full_code"`
	TargetType    *models.TargetType `json:"target_type,omitempty"`
	TargetID      *uuid.UUID         `json:"target_id,omitempty"`
	OwnerTenantID *uuid.UUID         `json:"owner_tenant_id,omitempty"`
}

// TokenStore is the slice of the store the resolver needs.
type TokenStore interface {
	GetTokenByFullCode(ctx context.Context, fullCode string) (*models.Token, error)
}

// NamespaceResolver maps a namespace code to its owning namespace record.
type NamespaceResolver interface {
	Resolve(ctx context.Context, code string) (*models.Namespace, error)
}

// Resolver validates and routes scanned codes. A nil cache disables the
// read-through token cache; mutations invalidate entries via Invalidate.
type Resolver struct {
	tokens     TokenStore
	namespaces NamespaceResolver
	cache      cache.Cache
	lookupTTL  time.Duration
}

// New creates a Resolver. cache may be nil.
func New(tokens TokenStore, namespaces NamespaceResolver, c cache.Cache, lookupTTL time.Duration) *Resolver {
	return &Resolver{tokens: tokens, namespaces: namespaces, cache: c, lookupTTL: lookupTTL}
}

// Resolve runs the full pipeline: normalize, verify checksum, resolve the
// namespace, look up the token, then gate on the caller's tenant context.
// currentTenant is nil when the caller has not selected a tenant.
//
// Error returns: code.ErrInvalidFormat, code.ErrInvalidChecksum,
// ErrUnknownNamespace, ErrTokenNotFound, ErrTokenRevoked.
func (r *Resolver) Resolve(ctx context.Context, raw string, currentTenant *uuid.UUID) (*Decision, error) {
	c, err := code.Normalize(raw)
	if err != nil {
		return nil, err
	}
	fullCode := c.String()

	if _, err := r.namespaces.Resolve(ctx, c.Namespace); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownNamespace
		}
		return nil, fmt.Errorf("resolve namespace: %w", err)
	}

	token, err := r.lookupToken(ctx, fullCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if token.State == models.TokenStateRevoked {
		return nil, ErrTokenRevoked
	}

	// The token row's tenant gates visibility; the namespace lookup above
	// only proves the prefix exists.
	ownerTenant := token.TenantID

	if currentTenant == nil {
		return &Decision{Outcome: OutcomeTenantNotSelected, FullCode: fullCode}, nil
	}
	if *currentTenant != ownerTenant {
		owner := ownerTenant
		return &Decision{
			Outcome:       OutcomeTenantMismatch,
			FullCode:      fullCode,
			OwnerTenantID: &owner,
		}, nil
	}

	if token.State != models.TokenStateAssigned {
		return &Decision{Outcome: OutcomeUnassigned, FullCode: fullCode}, nil
	}

	return &Decision{
		Outcome:    OutcomeResolved,
		FullCode:   fullCode,
		TargetType: token.TargetType,
		TargetID:   token.TargetID,
	}, nil
}

// Invalidate drops a token's cached lookup. Called after assign/revoke so the
// read path cannot serve a stale binding past the mutation.
func (r *Resolver) Invalidate(ctx context.Context, fullCode string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, cache.TokenKey(fullCode)); err != nil {
		slog.Warn("invalidate token cache", "full_code", fullCode, "error", err)
	}
}

// lookupToken serves assigned tokens from the cache when possible. Only the
// assigned state is cached: unassigned and revoked outcomes always come from
// the primary so state transitions are never masked.
func (r *Resolver) lookupToken(ctx context.Context, fullCode string) (*models.Token, error) {
	if r.cache != nil {
		if raw, found, err := r.cache.Get(ctx, cache.TokenKey(fullCode)); err == nil && found {
			var token models.Token
			if err := json.Unmarshal(raw, &token); err == nil {
				return &token, nil
			}
		}
	}

	token, err := r.tokens.GetTokenByFullCode(ctx, fullCode)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && token.State == models.TokenStateAssigned {
		if raw, err := json.Marshal(token); err == nil {
			if err := r.cache.Set(ctx, cache.TokenKey(fullCode), raw, r.lookupTTL); err != nil {
				slog.Warn("cache token lookup", "full_code", fullCode, "error", err)
			}
		}
	}
	return token, nil
}
