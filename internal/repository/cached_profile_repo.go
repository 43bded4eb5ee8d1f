package repository

import (
	"context"
	"log/slog"

	"github.com/hitoshi/portfolioweb/internal/model"
)

// ProfileCache はユーザー名をキーにしたプロフィールキャッシュ。
// キーの大文字小文字は区別しない。
type ProfileCache interface {
	Get(ctx context.Context, username string) (*model.Profile, error)
	Set(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, usernames ...string) error
}

// CachedProfileRepo は公開ページ向けのFindByUsernameをキャッシュするリポジトリ。
// それ以外の操作は内側のリポジトリにそのまま委譲する。
// キャッシュの障害はログに記録し、データベースへのアクセスで処理を継続する。
type CachedProfileRepo struct {
	ProfileRepository
	cache  ProfileCache
	logger *slog.Logger
}

// NewCachedProfileRepo はCachedProfileRepoを生成する。
func NewCachedProfileRepo(inner ProfileRepository, cache ProfileCache, logger *slog.Logger) *CachedProfileRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProfileRepo{ProfileRepository: inner, cache: cache, logger: logger}
}

// FindByUsername はキャッシュを参照し、なければデータベースから取得してキャッシュする。
// キャッシュから返すプロフィールにはパスワードハッシュが含まれない。
func (r *CachedProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	cached, err := r.cache.Get(ctx, username)
	if err != nil {
		r.logger.Warn("profile cache get failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
	if cached != nil {
		return cached, nil
	}

	p, err := r.ProfileRepository.FindByUsername(ctx, username)
	if err != nil || p == nil {
		return p, err
	}

	if err := r.cache.Set(ctx, p); err != nil {
		r.logger.Warn("profile cache set failed",
			slog.String("username", p.Username),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// UpsertByEmail は更新後に変更前と変更後のユーザー名のキャッシュを破棄する。
func (r *CachedProfileRepo) UpsertByEmail(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	prev, err := r.ProfileRepository.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	updated, err := r.ProfileRepository.UpsertByEmail(ctx, profile)
	if err != nil {
		return nil, err
	}

	stale := []string{updated.Username}
	if prev != nil && prev.Username != updated.Username {
		stale = append(stale, prev.Username)
	}
	if err := r.cache.Delete(ctx, stale...); err != nil {
		r.logger.Warn("profile cache invalidation failed",
			slog.Any("usernames", stale),
			slog.String("error", err.Error()),
		)
	}
	return updated, nil
}

// compile-time interface check
var _ ProfileRepository = (*CachedProfileRepo)(nil)
