package models

import (
	"time"

	"github.com/google/uuid"
)

// Namespace is a tenant-scoped 3-symbol code prefix. Codes are globally
// unique across all tenants and append-only: a namespace is never deleted and
// its code never changes once tokens have been minted under it.
type Namespace struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	Code      string    `db:"code"       json:"code"`
	Name      string    `db:"name"       json:"name"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
