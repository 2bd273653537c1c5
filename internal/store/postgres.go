package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/w-gitops/grocyscan/pkg/code"
	"github.com/w-gitops/grocyscan/pkg/models"
)

// maxCodeAttempts bounds the per-token collision retry loop during minting.
// The 33M-code space makes collisions astronomically unlikely, but the loop
// must terminate under write contention.
const maxCodeAttempts = 10

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants ---

func (s *PostgresStore) GetDefaultTenant(ctx context.Context) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM tenants WHERE name = 'default' LIMIT 1`,
	).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default tenant: %w", err)
	}
	return &t, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.TenantID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, id, tenantID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Namespaces ---

const namespaceColumns = `id, tenant_id, code, name, is_default, created_at, updated_at`

func scanNamespace(row pgx.Row) (*models.Namespace, error) {
	var ns models.Namespace
	err := row.Scan(&ns.ID, &ns.TenantID, &ns.Code, &ns.Name, &ns.IsDefault, &ns.CreatedAt, &ns.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan namespace: %w", err)
	}
	return &ns, nil
}

func (s *PostgresStore) CreateNamespace(ctx context.Context, ns *models.Namespace) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO namespaces (id, tenant_id, code, name, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ns.ID, ns.TenantID, ns.Code, ns.Name, ns.IsDefault, ns.CreatedAt, ns.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create namespace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNamespace(ctx context.Context, id uuid.UUID) (*models.Namespace, error) {
	return scanNamespace(s.pool.QueryRow(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces WHERE id = $1`, id))
}

func (s *PostgresStore) GetNamespaceByCode(ctx context.Context, nsCode string) (*models.Namespace, error) {
	return scanNamespace(s.pool.QueryRow(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces WHERE code = $1`, nsCode))
}

func (s *PostgresStore) GetDefaultNamespace(ctx context.Context, tenantID uuid.UUID) (*models.Namespace, error) {
	return scanNamespace(s.pool.QueryRow(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces WHERE tenant_id = $1 AND is_default`, tenantID))
}

func (s *PostgresStore) ListNamespaces(ctx context.Context, tenantID uuid.UUID) ([]*models.Namespace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []*models.Namespace
	for rows.Next() {
		var ns models.Namespace
		if err := rows.Scan(&ns.ID, &ns.TenantID, &ns.Code, &ns.Name, &ns.IsDefault,
			&ns.CreatedAt, &ns.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		namespaces = append(namespaces, &ns)
	}
	return namespaces, rows.Err()
}

// --- Tokens ---

const tokenColumns = `id, tenant_id, namespace_id, code, checksum, full_code, state,
	target_type, target_id, batch_id, assigned_at, revoked_at, created_at`

func scanToken(row pgx.Row) (*models.Token, error) {
	var t models.Token
	var state string
	var targetType *string
	err := row.Scan(&t.ID, &t.TenantID, &t.NamespaceID, &t.Code, &t.Checksum, &t.FullCode,
		&state, &targetType, &t.TargetID, &t.BatchID, &t.AssignedAt, &t.RevokedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan token: %w", err)
	}
	t.State = models.TokenState(state)
	if targetType != nil {
		tt := models.TargetType(*targetType)
		t.TargetType = &tt
	}
	return &t, nil
}

func (s *PostgresStore) GetTokenByFullCode(ctx context.Context, fullCode string) (*models.Token, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE full_code = $1`, fullCode))
}

// MintBatch inserts the batch row and all of its tokens in one transaction.
// Individual token inserts that collide on the unique code index are retried
// under a savepoint with freshly generated codes, bounded at maxCodeAttempts;
// exhausting the bound rolls back the whole batch and returns ErrMintFailed.
func (s *PostgresStore) MintBatch(ctx context.Context, batch *models.Batch) ([]*models.Token, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mint batch: %w", err)
	}
	defer tx.Rollback(ctx)

	ns, err := scanNamespace(tx.QueryRow(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces WHERE id = $1 AND tenant_id = $2`,
		batch.NamespaceID, batch.TenantID))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO batches (id, tenant_id, namespace_id, quantity, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		batch.ID, batch.TenantID, batch.NamespaceID, batch.Quantity, batch.CreatedAt); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	tokens := make([]*models.Token, 0, batch.Quantity)
	for i := 0; i < batch.Quantity; i++ {
		token, err := s.insertTokenWithRetry(ctx, tx, ns, batch)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mint batch: %w", err)
	}
	return tokens, nil
}

// insertTokenWithRetry generates a fresh code and inserts one token, retrying
// under a savepoint when the code collides with an existing row.
func (s *PostgresStore) insertTokenWithRetry(ctx context.Context, tx pgx.Tx, ns *models.Namespace, batch *models.Batch) (*models.Token, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		body, err := code.RandomBody(code.BodyLen)
		if err != nil {
			return nil, fmt.Errorf("generate code body: %w", err)
		}
		c, err := code.New(ns.Code, body)
		if err != nil {
			return nil, fmt.Errorf("build code: %w", err)
		}

		token := &models.Token{
			ID:          uuid.New(),
			TenantID:    batch.TenantID,
			NamespaceID: batch.NamespaceID,
			Code:        c.Body,
			Checksum:    string(c.Check),
			FullCode:    c.String(),
			State:       models.TokenStateUnassigned,
			BatchID:     &batch.ID,
			CreatedAt:   batch.CreatedAt,
		}

		// Savepoint so a duplicate-key failure only discards this insert.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin savepoint: %w", err)
		}
		_, err = sp.Exec(ctx,
			`INSERT INTO tokens (id, tenant_id, namespace_id, code, checksum, full_code, state, batch_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			token.ID, token.TenantID, token.NamespaceID, token.Code, token.Checksum,
			token.FullCode, token.State, token.BatchID, token.CreatedAt)
		if err != nil {
			sp.Rollback(ctx)
			if isDuplicateKeyError(err) {
				continue
			}
			return nil, fmt.Errorf("insert token: %w", err)
		}
		if err := sp.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit savepoint: %w", err)
		}
		return token, nil
	}
	return nil, ErrMintFailed
}

// AssignToken moves a token from unassigned to assigned under a row lock, so
// concurrent assigns on the same token serialize and exactly one wins.
// Re-assigning an already-assigned token to the same target is an idempotent
// success; any other non-unassigned state fails with ErrTokenNotUnassigned.
func (s *PostgresStore) AssignToken(ctx context.Context, fullCode string, targetType models.TargetType, targetID uuid.UUID) (*models.Token, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	token, err := scanToken(tx.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE full_code = $1 FOR UPDATE`, fullCode))
	if err != nil {
		return nil, err
	}

	if token.State == models.TokenStateAssigned &&
		token.TargetType != nil && *token.TargetType == targetType &&
		token.TargetID != nil && *token.TargetID == targetID {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit assign: %w", err)
		}
		return token, nil
	}
	if token.State != models.TokenStateUnassigned {
		return nil, ErrTokenNotUnassigned
	}

	now := time.Now().UTC()
	token, err = scanToken(tx.QueryRow(ctx,
		`UPDATE tokens SET state = $2, target_type = $3, target_id = $4, assigned_at = $5
		 WHERE full_code = $1
		 RETURNING `+tokenColumns, fullCode, models.TokenStateAssigned, targetType, targetID, now))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	return token, nil
}

// RevokeToken moves a token to revoked from any state, clearing its target.
// Revoking an already-revoked token is a no-op success.
func (s *PostgresStore) RevokeToken(ctx context.Context, fullCode string) (*models.Token, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin revoke: %w", err)
	}
	defer tx.Rollback(ctx)

	token, err := scanToken(tx.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE full_code = $1 FOR UPDATE`, fullCode))
	if err != nil {
		return nil, err
	}

	if token.State == models.TokenStateRevoked {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit revoke: %w", err)
		}
		return token, nil
	}

	now := time.Now().UTC()
	token, err = scanToken(tx.QueryRow(ctx,
		`UPDATE tokens SET state = $2, target_type = NULL, target_id = NULL, revoked_at = $3
		 WHERE full_code = $1
		 RETURNING `+tokenColumns, fullCode, models.TokenStateRevoked, now))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit revoke: %w", err)
	}
	return token, nil
}

// --- Batches ---

func (s *PostgresStore) GetBatch(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error) {
	var b models.Batch
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, namespace_id, quantity, created_at, printed_at
		 FROM batches WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&b.ID, &b.TenantID, &b.NamespaceID, &b.Quantity, &b.CreatedAt, &b.PrintedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) ListBatchTokens(ctx context.Context, batchID uuid.UUID) ([]*models.Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE batch_id = $1 ORDER BY full_code`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		var t models.Token
		var state string
		var targetType *string
		if err := rows.Scan(&t.ID, &t.TenantID, &t.NamespaceID, &t.Code, &t.Checksum, &t.FullCode,
			&state, &targetType, &t.TargetID, &t.BatchID, &t.AssignedAt, &t.RevokedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		t.State = models.TokenState(state)
		if targetType != nil {
			tt := models.TargetType(*targetType)
			t.TargetType = &tt
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) MarkBatchPrinted(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Batch, error) {
	var b models.Batch
	err := s.pool.QueryRow(ctx,
		`UPDATE batches SET printed_at = COALESCE(printed_at, NOW())
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING id, tenant_id, namespace_id, quantity, created_at, printed_at`, id, tenantID,
	).Scan(&b.ID, &b.TenantID, &b.NamespaceID, &b.Quantity, &b.CreatedAt, &b.PrintedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark batch printed: %w", err)
	}
	return &b, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
