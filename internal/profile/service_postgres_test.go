package profile

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hitoshi/portfolioweb/internal/auth"
	"github.com/hitoshi/portfolioweb/internal/database"
	"github.com/hitoshi/portfolioweb/internal/model"
	"github.com/hitoshi/portfolioweb/internal/repository"
	"github.com/hitoshi/portfolioweb/internal/security"
)

// --- PostgreSQLを使用する結合テスト ---

type postgresFixture struct {
	profiles *Service
	auth     *auth.Service
}

func setupPostgres(t *testing.T) postgresFixture {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE profiles CASCADE`); err != nil {
		t.Fatalf("クリーンアップに失敗: %v", err)
	}

	profileRepo := repository.NewPostgresProfileRepo(db)
	profiles := NewService(profileRepo, security.NewTextSanitizer(), Config{})
	authService := auth.NewService(
		nil,
		profileRepo,
		repository.NewPostgresIdentityRepo(db),
		repository.NewPostgresSessionRepo(db),
		profiles,
		auth.NewTokenManager("test-secret-test-secret-test-secret"),
		auth.ServiceConfig{SessionMaxAge: 3600, ValidateUsername: ValidateUsername},
	)
	return postgresFixture{profiles: profiles, auth: authService}
}

func TestPostgres_RegisterThenSaveProfile(t *testing.T) {
	f := setupPostgres(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, auth.RegisterInput{
		Name:     "Kim",
		Email:    "kim@example.com",
		Password: "correct horse",
		Username: "Kim",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	in := Input{
		Username:        "Kim",
		Name:            "Kim Lee",
		About:           "Go developer",
		Skills:          []string{"Go", "PostgreSQL"},
		SectionOrder:    []string{"skills", "about"},
		ThemeBackground: "bg-white",
		ThemeID:         "premium",
	}
	first, err := f.profiles.Upsert(ctx, "kim@example.com", in)
	if err != nil {
		t.Fatalf("1回目のUpsert()に失敗: %v", err)
	}
	second, err := f.profiles.Upsert(ctx, "kim@example.com", in)
	if err != nil {
		t.Fatalf("2回目のUpsert()に失敗: %v", err)
	}

	if first.ID != registered.Profile.ID {
		t.Errorf("ID = %q, want registered ID %q", first.ID, registered.Profile.ID)
	}
	if first.AuthMethod != model.AuthMethodPassword || first.PasswordHash == "" {
		t.Errorf("AuthMethod/PasswordHash = %q/%q, want password account kept", first.AuthMethod, first.PasswordHash)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(model.Profile{}, "UpdatedAt")); diff != "" {
		t.Errorf("profile changed on repeated upsert (-first +second):\n%s", diff)
	}

	got, err := f.profiles.GetByUsername(ctx, "kIM")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("round trip mismatch (-saved +read):\n%s", diff)
	}
}
