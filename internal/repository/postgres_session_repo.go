package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/portfolioweb/internal/model"
)

// PostgresSessionRepo はsessionsテーブルを扱うSessionRepository実装。
// セッションIDはJWTのsidクレームと一致する。
type PostgresSessionRepo struct {
	db *sql.DB
}

func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func (r *PostgresSessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, profile_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.ProfileID, s.ExpiresAt, s.CreatedAt,
	)
	if err := mapConstraintError(err); err != nil {
		return fmt.Errorf("failed to insert session for profile %s: %w", s.ProfileID, err)
	}
	return nil
}

// FindByID は有効期限内のセッションを返す。
// 期限切れの行は削除ジョブが消すまで残るが、ここでは存在しないものとして扱う。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_id, expires_at, created_at FROM sessions WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&s.ID, &s.ProfileID, &s.ExpiresAt, &s.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return &s, nil
}

// DeleteByID はセッションを削除する。存在しないIDでもエラーにしない。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
