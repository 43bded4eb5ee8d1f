package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/portfolioweb/internal/model"
)

// PostgresIdentityRepo はidentitiesテーブルを扱うIdentityRepository実装。
// (provider, provider_user_id) に一意制約がある。
type PostgresIdentityRepo struct {
	db *sql.DB
}

func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	var id model.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_id, provider, provider_user_id, created_at
		 FROM identities WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&id.ID, &id.ProfileID, &id.Provider, &id.ProviderUserID, &id.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to select %s identity: %w", provider, err)
	}
	return &id, nil
}

// Create は既存プロフィールにidentityを紐付ける。
// 一意制約違反はErrIdentityTakenになる。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	if err := insertIdentity(ctx, r.db, identity); err != nil {
		return fmt.Errorf("failed to link %s identity: %w", identity.Provider, err)
	}
	return nil
}

// insertIdentityはCreateWithIdentityのトランザクション内からも呼ばれる。
func insertIdentity(ctx context.Context, db execer, identity *model.Identity) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO identities (id, profile_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.ProfileID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	return mapConstraintError(err)
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
