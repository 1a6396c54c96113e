package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/registry"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// IdentityRepository provides PostgreSQL-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// NextID returns max(id)+1, or 1 if no identities exist.
func (r *IdentityRepository) NextID(ctx context.Context) (int, error) {
	var next int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM identities").Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next identity id: %w", err)
	}
	return next, nil
}

// Register inserts a new identity.
func (r *IdentityRepository) Register(ctx context.Context, identity registry.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO identities (id, display_name, external_reference)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.db.ExecContext(ctx, query, identity.ID, identity.DisplayName, identity.ExternalReference)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: id %d", registry.ErrDuplicateIdentity, identity.ID)
	}
	if err != nil {
		return fmt.Errorf("register identity: %w", err)
	}
	return nil
}

// LoadAll returns every identity, validating each row.
func (r *IdentityRepository) LoadAll(ctx context.Context) (map[int]registry.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, display_name, external_reference
		FROM identities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[int]registry.Identity)
	for rows.Next() {
		var identity registry.Identity
		if err := rows.Scan(&identity.ID, &identity.DisplayName, &identity.ExternalReference); err != nil {
			return nil, fmt.Errorf("%w: scan identity: %v", registry.ErrCorruptRecord, err)
		}
		if err := identity.ValidateStored(); err != nil {
			return nil, fmt.Errorf("%w: identity %d: %v", registry.ErrCorruptRecord, identity.ID, err)
		}
		snapshot[identity.ID] = identity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return snapshot, nil
}
