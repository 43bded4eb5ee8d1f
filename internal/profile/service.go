// Package profile はプロフィールの取得・保存とユーザー名の管理を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/portfolioweb/internal/model"
	"github.com/hitoshi/portfolioweb/internal/repository"
	"github.com/hitoshi/portfolioweb/internal/security"
)

// DefaultTrialDays は試用期間の既定日数。
const DefaultTrialDays = 7

// DefaultLanguage はプロフィール言語の既定値。
const DefaultLanguage = "en"

// maxUsernameLength はユーザー名の最大長。サブドメインのラベル長に合わせる。
const maxUsernameLength = 63

// maxUsernameAttempts はユーザー名自動生成時の連番の上限。
const maxUsernameAttempts = 10000

// usernamePattern はDNSラベルとして使用可能なユーザー名の形式。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

// nonAlnum は自動生成時に除去する文字。
var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// reservedUsernames はメインアプリケーションのホストと衝突するため使用できない名前。
var reservedUsernames = map[string]bool{
	"www": true,
	"app": true,
	"api": true,
}

// Config はServiceの設定。
type Config struct {
	TrialDays int
}

// Input はプロフィール保存時の入力値。編集可能な項目をすべて含む。
type Input struct {
	Username        string
	Name            string
	Specialization  string
	About           string
	Country         string
	Phone           string
	ImageURL        string
	CVURL           string
	Language        string
	Skills          []string
	Services        []model.Service
	Education       []model.Education
	Experience      []model.Experience
	Projects        []model.Project
	Certificates    []model.Certificate
	SpokenLanguages []model.SpokenLanguage
	Socials         map[string]string
	SectionOrder    []string
	ThemeBackground string
	ThemeID         string
}

// Service はプロフィールのサービス層。
type Service struct {
	repo      repository.ProfileRepository
	sanitizer security.TextSanitizer
	trialDays int
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ProfileRepository, sanitizer security.TextSanitizer, cfg Config) *Service {
	trialDays := cfg.TrialDays
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		trialDays: trialDays,
		now:       time.Now,
	}
}

// GetByIdentityKey はメールアドレスでプロフィールを取得する。
func (s *Service) GetByIdentityKey(ctx context.Context, email string) (*model.Profile, error) {
	p, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError(email)
	}
	return p, nil
}

// GetByUsername はユーザー名でプロフィールを取得する。大文字小文字は区別しない。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return nil, model.NewProfileNotFoundError(username)
	}

	p, err := s.repo.FindByUsername(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError(name)
	}
	return p, nil
}

// GetByID はプロフィールIDでプロフィールを取得する。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError(id)
	}
	return p, nil
}

// Upsert はメールアドレスをキーにプロフィールの編集可能な項目を置き換える。
// 該当するプロフィールがなければ試用状態で作成する。
// 同じ入力を繰り返し保存しても結果はUpdatedAt以外変わらない。
func (s *Service) Upsert(ctx context.Context, email string, in Input) (*model.Profile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, model.NewValidationError("メールアドレスは必須です")
	}

	username := strings.TrimSpace(in.Username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	owner, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザー名の確認に失敗しました: %w", err)
	}
	if owner != nil && owner.Email != email {
		return nil, model.NewUsernameTakenError(username)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	p := s.apply(in)
	p.Email = email
	p.Username = username
	if p.ImageURL == "" && existing != nil {
		p.ImageURL = existing.ImageURL
	}

	now := s.now()
	if existing == nil {
		s.initNew(p, model.AuthMethodFederated, now)
	} else {
		keepAccount(p, existing)
	}
	p.UpdatedAt = now

	saved, err := s.repo.UpsertByEmail(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("プロフィールの保存に失敗しました: %w", err)
	}
	return saved, nil
}

// NewProfile は登録直後のプロフィールを組み立てる。
// 試用期間、既定のセクション順、既定のテーマを設定する。保存は呼び出し側が行う。
func (s *Service) NewProfile(email, username, name string, method model.AuthMethod) *model.Profile {
	p := &model.Profile{
		Email:    normalizeEmail(email),
		Username: username,
		Name:     s.sanitizer.SanitizeText(name),
	}
	s.initNew(p, method, s.now())
	p.SectionOrder = append([]model.Section(nil), model.DefaultSectionOrder...)
	return p
}

// GenerateUsername はメールアドレスのローカル部から未使用のユーザー名を生成する。
// 小文字化して英数字以外を除去し、使用済みであれば末尾に1, 2, ...を付与する。
func (s *Service) GenerateUsername(ctx context.Context, email string) (string, error) {
	base := usernameBase(email)

	for i := 0; i < maxUsernameAttempts; i++ {
		candidate := base
		if i > 0 {
			suffix := strconv.Itoa(i)
			candidate = truncate(base, maxUsernameLength-len(suffix)) + suffix
		}
		if reservedUsernames[candidate] {
			continue
		}

		exists, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("ユーザー名の確認に失敗しました: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("ユーザー名を生成できませんでした: %s", base)
}

// ValidateUsername はユーザー名の形式を検証する。
// 1〜63文字の英数字とハイフンで、先頭と末尾はハイフン不可。予約名は使用できない。
func ValidateUsername(username string) error {
	if username == "" {
		return model.NewValidationError("ユーザー名は必須です")
	}
	if len(username) > maxUsernameLength {
		return model.NewValidationError("ユーザー名は63文字以内で指定してください")
	}
	if !usernamePattern.MatchString(username) {
		return model.NewValidationError("ユーザー名には英数字とハイフンのみ使用できます")
	}
	if reservedUsernames[strings.ToLower(username)] {
		return model.NewValidationError(fmt.Sprintf("ユーザー名 %q は予約されています", username))
	}
	return nil
}

func (s *Service) initNew(p *model.Profile, method model.AuthMethod, now time.Time) {
	p.ID = uuid.New().String()
	p.AuthMethod = method
	p.SubscriptionStatus = model.SubscriptionTrial
	p.TrialEndsAt = now.AddDate(0, 0, s.trialDays)
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	if p.ThemeSettings.Background == "" {
		p.ThemeSettings.Background = model.DefaultBackground
	}
	if p.ThemeSettings.ThemeID == "" {
		p.ThemeSettings.ThemeID = model.ThemeMinimal
	}
}

// keepAccount は編集対象外の項目を既存行から引き継ぐ。
// INSERT ... ON CONFLICTは挿入候補の行も検証するため、更新時も完全な行を渡す。
func keepAccount(p, existing *model.Profile) {
	p.ID = existing.ID
	p.AuthMethod = existing.AuthMethod
	p.PasswordHash = existing.PasswordHash
	p.SubscriptionStatus = existing.SubscriptionStatus
	p.TrialEndsAt = existing.TrialEndsAt
	p.CreatedAt = existing.CreatedAt
	if p.ThemeSettings.Background == "" {
		p.ThemeSettings.Background = model.DefaultBackground
	}
}

// apply は入力値をサニタイズしてプロフィールの編集可能な項目に変換する。
func (s *Service) apply(in Input) *model.Profile {
	text := s.sanitizer.SanitizeText
	link := s.sanitizer.SanitizeURL

	p := &model.Profile{
		Name:           text(in.Name),
		Specialization: text(in.Specialization),
		About:          text(in.About),
		Country:        text(in.Country),
		Phone:          text(in.Phone),
		ImageURL:       link(in.ImageURL),
		CVURL:          link(in.CVURL),
		Language:       strings.ToLower(text(in.Language)),
		SectionOrder:   model.NormalizeSectionOrder(in.SectionOrder),
		ThemeSettings: model.ThemeSettings{
			Background: text(in.ThemeBackground),
			ThemeID:    model.ParseThemeID(in.ThemeID),
		},
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}

	for _, skill := range in.Skills {
		if v := text(skill); v != "" {
			p.Skills = append(p.Skills, v)
		}
	}
	for _, v := range in.Services {
		v = model.Service{Title: text(v.Title), Description: text(v.Description), Price: text(v.Price)}
		if v != (model.Service{}) {
			p.Services = append(p.Services, v)
		}
	}
	for _, v := range in.Education {
		v = model.Education{Institution: text(v.Institution), Degree: text(v.Degree), Year: text(v.Year)}
		if v != (model.Education{}) {
			p.Education = append(p.Education, v)
		}
	}
	for _, v := range in.Experience {
		v = model.Experience{Role: text(v.Role), Company: text(v.Company), Duration: text(v.Duration), Description: text(v.Description)}
		if v != (model.Experience{}) {
			p.Experience = append(p.Experience, v)
		}
	}
	for _, v := range in.Projects {
		v = model.Project{Title: text(v.Title), Description: text(v.Description), Link: link(v.Link)}
		if v != (model.Project{}) {
			p.Projects = append(p.Projects, v)
		}
	}
	for _, v := range in.Certificates {
		v = model.Certificate{Name: text(v.Name), Issuer: text(v.Issuer), Year: text(v.Year), Link: link(v.Link)}
		if v != (model.Certificate{}) {
			p.Certificates = append(p.Certificates, v)
		}
	}
	for _, v := range in.SpokenLanguages {
		v = model.SpokenLanguage{Language: text(v.Language), Proficiency: text(v.Proficiency)}
		if v != (model.SpokenLanguage{}) {
			p.SpokenLanguages = append(p.SpokenLanguages, v)
		}
	}

	for platform, raw := range in.Socials {
		key := strings.ToLower(strings.TrimSpace(platform))
		if key == "" {
			continue
		}
		if u := link(raw); u != "" {
			if p.Socials == nil {
				p.Socials = make(model.Socials)
			}
			p.Socials[key] = u
		}
	}

	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameBase(email string) string {
	local := normalizeEmail(email)
	if i := strings.Index(local, "@"); i >= 0 {
		local = local[:i]
	}
	base := truncate(nonAlnum.ReplaceAllString(local, ""), maxUsernameLength)
	if base == "" {
		return "user"
	}
	return base
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
