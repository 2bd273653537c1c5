// Package models contains shared data models used across the grocyscan codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a household or organization. Every namespace, token and
// batch belongs to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
