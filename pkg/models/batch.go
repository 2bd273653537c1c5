package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch is an atomically-created group of tokens minted together for
// printing. PrintedAt is informational, set once a label sheet has been
// generated for the batch.
type Batch struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	TenantID    uuid.UUID  `db:"tenant_id"    json:"tenant_id"`
	NamespaceID uuid.UUID  `db:"namespace_id" json:"namespace_id"`
	Quantity    int        `db:"quantity"     json:"quantity"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	PrintedAt   *time.Time `db:"printed_at"   json:"printed_at,omitempty"`
}
