// Package auth はパスワード認証とOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/portfolioweb/internal/model"
	"github.com/hitoshi/portfolioweb/internal/repository"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ProfileProvisioner は新規プロフィールの組み立てとユーザー名の採番を行う。
// profile.Serviceが実装する。
type ProfileProvisioner interface {
	GenerateUsername(ctx context.Context, email string) (string, error)
	NewProfile(email, username, name string, method model.AuthMethod) *model.Profile
}

// UsernameValidator はユーザー名の形式を検証する関数。
type UsernameValidator func(username string) error

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int // セッション有効期間（秒）
	ValidateUsername UsernameValidator
}

// RegisterInput はパスワード登録の入力値。Usernameは省略可能。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Username string
}

// LoginResult はサインイン成功時に発行されたセッションとトークン。
type LoginResult struct {
	Session *model.Session
	Token   string
	Profile *model.Profile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	profileRepo repository.ProfileRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	provisioner ProfileProvisioner
	tokens      *TokenManager
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	profileRepo repository.ProfileRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	provisioner ProfileProvisioner,
	tokens *TokenManager,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		profileRepo: profileRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		provisioner: provisioner,
		tokens:      tokens,
		config:      config,
		now:         time.Now,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Register はメールアドレスとパスワードでプロフィールを作成し、セッションを発行する。
// ユーザー名が省略された場合はメールアドレスから生成する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return nil, model.NewValidationError("名前、メールアドレス、パスワードは必須です")
	}
	if !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が不正です")
	}
	if len(in.Password) < minPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で指定してください", minPasswordLength))
	}

	existing, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	username, err := s.resolveUsername(ctx, email, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p := s.provisioner.NewProfile(email, username, name, model.AuthMethodPassword)
	p.PasswordHash = string(hash)

	if err := s.profileRepo.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, model.NewEmailTakenError()
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("profile registered",
		slog.String("profile_id", p.ID),
		slog.String("username", p.Username),
	)

	return s.login(ctx, p)
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードは必須です")
	}

	p, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if p == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if !p.HasPassword() {
		return nil, model.NewFederatedAccountError()
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return s.login(ctx, p)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 紐付け済みのidentityがあればそのプロフィールでログインする。
// 同じメールアドレスのプロフィールがあればidentityを紐付ける。
// どちらもなければプロフィールとidentityを同時に作成する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*LoginResult, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if errors.Is(err, ErrEmailNotVerified) {
		return nil, model.NewValidationError("email address is not verified")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(userInfo.Email))
	if email == "" {
		return nil, fmt.Errorf("oauth provider returned no email")
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if identity != nil {
		p, err := s.profileRepo.FindByID(ctx, identity.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("failed to find profile: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("profile not found for identity %s", identity.ID)
		}
		slog.Info("existing profile logged in",
			slog.String("profile_id", p.ID),
			slog.String("provider", userInfo.Provider),
		)
		return s.login(ctx, p)
	}

	now := s.now()
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	existing, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing != nil {
		newIdentity.ProfileID = existing.ID
		if err := s.identRepo.Create(ctx, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to link identity: %w", err)
		}
		slog.Info("identity linked to existing profile",
			slog.String("profile_id", existing.ID),
			slog.String("provider", userInfo.Provider),
		)
		return s.login(ctx, existing)
	}

	username, err := s.provisioner.GenerateUsername(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate username: %w", err)
	}
	p := s.provisioner.NewProfile(email, username, userInfo.Name, model.AuthMethodFederated)
	p.ImageURL = userInfo.Picture
	newIdentity.ProfileID = p.ID

	if err := s.profileRepo.CreateWithIdentity(ctx, p, newIdentity); err != nil {
		return nil, fmt.Errorf("failed to create profile and identity: %w", err)
	}

	slog.Info("new profile provisioned",
		slog.String("profile_id", p.ID),
		slog.String("username", p.Username),
		slog.String("provider", userInfo.Provider),
	)

	return s.login(ctx, p)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("profile logged out", slog.String("session_id", sessionID))
	return nil
}

// Authenticate はセッショントークンを検証し、対応する有効なセッションを返す。
// トークンが不正、またはセッションが削除・失効している場合はErrInvalidTokenを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.ProfileID != claims.Subject || session.Expired(s.now()) {
		return nil, ErrInvalidToken
	}
	return session, nil
}

// GetCurrentProfile はセッションから現在のプロフィールを取得する。
func (s *Service) GetCurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	p, err := s.profileRepo.FindByID(ctx, session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile not found")
	}

	return p, nil
}

// resolveUsername は指定されたユーザー名を検証するか、未指定なら生成する。
func (s *Service) resolveUsername(ctx context.Context, email, requested string) (string, error) {
	if requested == "" {
		username, err := s.provisioner.GenerateUsername(ctx, email)
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		return username, nil
	}

	if s.config.ValidateUsername != nil {
		if err := s.config.ValidateUsername(requested); err != nil {
			return "", err
		}
	}
	exists, err := s.profileRepo.UsernameExists(ctx, requested)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return "", model.NewUsernameTakenError(requested)
	}
	return requested, nil
}

// login はセッションを作成し、対応するトークンを発行する。
func (s *Service) login(ctx context.Context, p *model.Profile) (*LoginResult, error) {
	session, err := s.createSession(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(p.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Session: session, Token: token, Profile: p}, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profileID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		ProfileID: profileID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
