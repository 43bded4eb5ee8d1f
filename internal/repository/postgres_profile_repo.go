package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/portfolioweb/internal/model"
)

// profileColumns はSELECT/RETURNINGで使用するカラム一覧。scanProfileと順序を合わせること。
const profileColumns = `id, email, username, auth_method, password_hash,
	name, specialization, about, country, phone, image_url, cv_url, language,
	skills, services, education, experience, projects, certificates, spoken_languages,
	socials, section_order, theme_background, theme_id,
	subscription_status, trial_ends_at, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// 可変長の項目はJSONBカラムに格納する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}
	return p, nil
}

// FindByEmail は識別キー（メールアドレス）でプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by email: %w", err)
	}
	return p, nil
}

// FindByUsername はユーザー名でプロフィールを取得する。大文字小文字は区別しない。
// lower(username)の一意インデックスを利用する。
func (r *PostgresProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(username) = lower($1)`,
		username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by username: %w", err)
	}
	return p, nil
}

// UsernameExists はユーザー名が使用済みかを返す。大文字小文字は区別しない。
func (r *PostgresProfileRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1))`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Create はプロフィールを作成する。
// ユーザー名またはメールアドレスが重複する場合はErrUsernameTaken/ErrEmailTakenを返す。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if err := insertProfile(ctx, r.db, profile); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// CreateWithIdentity はプロフィールとidentityを同一トランザクションで作成する。
func (r *PostgresProfileRepo) CreateWithIdentity(ctx context.Context, profile *model.Profile, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertProfile(ctx, tx, profile); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := insertIdentity(ctx, tx, identity); err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpsertByEmail はメールアドレスをキーに編集可能な項目を一括で置き換える。
// ID、認証方式、パスワード、契約状態、作成日時は既存行の値を維持する。
func (r *PostgresProfileRepo) UpsertByEmail(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	args, err := profileArgs(profile)
	if err != nil {
		return nil, err
	}

	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		 ON CONFLICT (email) DO UPDATE SET
			username         = EXCLUDED.username,
			name             = EXCLUDED.name,
			specialization   = EXCLUDED.specialization,
			about            = EXCLUDED.about,
			country          = EXCLUDED.country,
			phone            = EXCLUDED.phone,
			image_url        = EXCLUDED.image_url,
			cv_url           = EXCLUDED.cv_url,
			language         = EXCLUDED.language,
			skills           = EXCLUDED.skills,
			services         = EXCLUDED.services,
			education        = EXCLUDED.education,
			experience       = EXCLUDED.experience,
			projects         = EXCLUDED.projects,
			certificates     = EXCLUDED.certificates,
			spoken_languages = EXCLUDED.spoken_languages,
			socials          = EXCLUDED.socials,
			section_order    = EXCLUDED.section_order,
			theme_background = EXCLUDED.theme_background,
			theme_id         = EXCLUDED.theme_id,
			updated_at       = EXCLUDED.updated_at
		 RETURNING `+profileColumns,
		args...,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", mapConstraintError(err))
	}
	return p, nil
}

// execer は*sql.DBと*sql.Txの共通部分。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertProfile(ctx context.Context, db execer, profile *model.Profile) error {
	args, err := profileArgs(profile)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`,
		args...,
	)
	return mapConstraintError(err)
}

// profileArgs はprofileColumnsの順にINSERT用の引数を組み立てる。
func profileArgs(p *model.Profile) ([]any, error) {
	// lib/pqは[]byteをbyteaとして送るため、JSONB列には文字列で渡す
	var encoded [9]string
	for i, v := range []struct {
		value any
		empty string
	}{
		{p.Skills, "[]"},
		{p.Services, "[]"},
		{p.Education, "[]"},
		{p.Experience, "[]"},
		{p.Projects, "[]"},
		{p.Certificates, "[]"},
		{p.SpokenLanguages, "[]"},
		{p.Socials, "{}"},
		{p.SectionOrder, "[]"},
	} {
		b, err := encodeJSONColumn(v.value, v.empty)
		if err != nil {
			return nil, fmt.Errorf("failed to encode profile column: %w", err)
		}
		encoded[i] = string(b)
	}

	var trialEndsAt sql.NullTime
	if !p.TrialEndsAt.IsZero() {
		trialEndsAt = sql.NullTime{Time: p.TrialEndsAt, Valid: true}
	}

	return []any{
		p.ID, p.Email, p.Username, string(p.AuthMethod), p.PasswordHash,
		p.Name, p.Specialization, p.About, p.Country, p.Phone, p.ImageURL, p.CVURL, p.Language,
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4], encoded[5], encoded[6],
		encoded[7], encoded[8], p.ThemeSettings.Background, string(p.ThemeSettings.ThemeID),
		string(p.SubscriptionStatus), trialEndsAt, p.CreatedAt, p.UpdatedAt,
	}, nil
}

// encodeJSONColumn はnilスライスやnilマップを空のJSON値として保存する。
func encodeJSONColumn(v any, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var (
		authMethod, themeID, status string
		trialEndsAt                 sql.NullTime
		skills, services, education []byte
		experience, projects, certs []byte
		spoken, socials, order      []byte
	)

	err := row.Scan(
		&p.ID, &p.Email, &p.Username, &authMethod, &p.PasswordHash,
		&p.Name, &p.Specialization, &p.About, &p.Country, &p.Phone, &p.ImageURL, &p.CVURL, &p.Language,
		&skills, &services, &education, &experience, &projects, &certs, &spoken,
		&socials, &order, &p.ThemeSettings.Background, &themeID,
		&status, &trialEndsAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.AuthMethod = model.AuthMethod(authMethod)
	p.ThemeSettings.ThemeID = model.ParseThemeID(themeID)
	p.SubscriptionStatus = model.SubscriptionStatus(status)
	if trialEndsAt.Valid {
		p.TrialEndsAt = trialEndsAt.Time
	}

	var names []string
	for _, c := range []struct {
		data []byte
		dest any
	}{
		{skills, &p.Skills},
		{services, &p.Services},
		{education, &p.Education},
		{experience, &p.Experience},
		{projects, &p.Projects},
		{certs, &p.Certificates},
		{spoken, &p.SpokenLanguages},
		{socials, &p.Socials},
		{order, &names},
	} {
		if len(c.data) == 0 {
			continue
		}
		if err := json.Unmarshal(c.data, c.dest); err != nil {
			return nil, fmt.Errorf("failed to decode profile column: %w", err)
		}
	}
	p.SectionOrder = model.NormalizeSectionOrder(names)

	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
