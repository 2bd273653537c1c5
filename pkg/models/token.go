package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenState is the lifecycle state of a token. Transitions are monotonic:
// unassigned -> assigned -> revoked, or unassigned -> revoked. Nothing ever
// returns to unassigned.
type TokenState string

const (
	TokenStateUnassigned TokenState = "unassigned"
	TokenStateAssigned   TokenState = "assigned"
	TokenStateRevoked    TokenState = "revoked"
)

// TargetType is the closed set of inventory objects a token can point at.
type TargetType string

const (
	TargetContainer       TargetType = "container"
	TargetProductInstance TargetType = "product_instance"
	TargetLocation        TargetType = "location"
)

// ParseTargetType validates a wire string against the closed target set.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetContainer, TargetProductInstance, TargetLocation:
		return TargetType(s), nil
	}
	return "", fmt.Errorf("unknown target type %q", s)
}

// Token is a single mintable/assignable/revocable code record. FullCode is
// the normalized NS-CODE-CHECK string and is globally unique. TargetType and
// TargetID are set if and only if State is assigned; revocation clears them.
type Token struct {
	ID         uuid.UUID   `db:"id"          json:"id"`
	TenantID   uuid.UUID   `db:"tenant_id"   json:"tenant_id"`
	NamespaceID uuid.UUID  `db:"namespace_id" json:"namespace_id"`
	Code       string      `db:"code"        json:"code"`
	Checksum   string      `db:"checksum"    json:"checksum"`
	FullCode   string      `db:"full_code"   json:"full_code"`
	State      TokenState  `db:"state"       json:"state"`
	TargetType *TargetType `db:"target_type" json:"target_type,omitempty"`
	TargetID   *uuid.UUID  `db:"target_id"   json:"target_id,omitempty"`
	BatchID    *uuid.UUID  `db:"batch_id"    json:"batch_id,omitempty"`
	AssignedAt *time.Time  `db:"assigned_at" json:"assigned_at,omitempty"`
	RevokedAt  *time.Time  `db:"revoked_at"  json:"revoked_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at"  json:"created_at"`
}
