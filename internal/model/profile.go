// Package model はドメインモデルを定義する。
package model

import (
	"sort"
	"strings"
	"time"
)

// AuthMethod はプロフィール作成時の認証方式を表す。
type AuthMethod string

const (
	// AuthMethodPassword はメールアドレスとパスワードによる登録を表す。
	AuthMethodPassword AuthMethod = "password"
	// AuthMethodFederated は外部IdP（Google等）によるサインインで作成されたことを表す。
	// ローカルのパスワードを持たない場合がある。
	AuthMethodFederated AuthMethod = "federated"
)

// SubscriptionStatus は契約状態を表す。
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// DefaultBackground はテーマ設定の背景トークンの既定値。
const DefaultBackground = "bg-slate-950"

// Profile は登録ユーザー1人につき1件存在するポートフォリオ情報。
// Emailが識別キーで、Usernameが公開ページのルーティングキーとなる。
type Profile struct {
	ID           string
	Email        string
	Username     string
	AuthMethod   AuthMethod
	PasswordHash string

	Name           string
	Specialization string
	About          string
	Country        string
	Phone          string
	ImageURL       string
	CVURL          string
	Language       string

	Skills          []string
	Services        []Service
	Education       []Education
	Experience      []Experience
	Projects        []Project
	Certificates    []Certificate
	SpokenLanguages []SpokenLanguage
	Socials         Socials

	SectionOrder  []Section
	ThemeSettings ThemeSettings

	SubscriptionStatus SubscriptionStatus
	TrialEndsAt        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service は提供サービス1件。
type Service struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Education は学歴1件。
type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Year        string `json:"year,omitempty"`
}

// Experience は職歴1件。
type Experience struct {
	Role        string `json:"role,omitempty"`
	Company     string `json:"company,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// Project は制作実績1件。
type Project struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Certificate は資格・認定1件。
type Certificate struct {
	Name   string `json:"name,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Year   string `json:"year,omitempty"`
	Link   string `json:"link,omitempty"`
}

// SpokenLanguage は話せる言語1件。
type SpokenLanguage struct {
	Language    string `json:"language,omitempty"`
	Proficiency string `json:"proficiency,omitempty"`
}

// ThemeSettings は公開ページの見た目の設定。
type ThemeSettings struct {
	Background string
	ThemeID    ThemeID
}

// HasPassword はローカル認証情報を持つかどうかを返す。
func (p *Profile) HasPassword() bool {
	return p.PasswordHash != ""
}

// KnownSocialPlatforms は既知のSNSプラットフォームキー。表示順もこの順序に従う。
var KnownSocialPlatforms = []string{
	"github", "linkedin", "twitter", "youtube", "reddit", "facebook",
	"whatsapp", "telegram", "tiktok", "instagram", "twitch", "snapchat", "website",
}

// Socials はプラットフォーム名からURLへのマッピング。
// 既知のキー以外も保持できる。
type Socials map[string]string

// SocialLink は表示用のSNSリンク1件。
type SocialLink struct {
	Platform string
	URL      string
}

// Links はURLが空でないリンクを表示順に返す。
// 既知のプラットフォームを先に、それ以外はキーのアルファベット順に並べる。
func (s Socials) Links() []SocialLink {
	if len(s) == 0 {
		return nil
	}

	var links []SocialLink
	known := make(map[string]bool, len(KnownSocialPlatforms))
	for _, platform := range KnownSocialPlatforms {
		known[platform] = true
		if url := strings.TrimSpace(s[platform]); url != "" {
			links = append(links, SocialLink{Platform: platform, URL: url})
		}
	}

	var extra []string
	for platform, url := range s {
		if !known[platform] && strings.TrimSpace(url) != "" {
			extra = append(extra, platform)
		}
	}
	sort.Strings(extra)
	for _, platform := range extra {
		links = append(links, SocialLink{Platform: platform, URL: strings.TrimSpace(s[platform])})
	}

	return links
}
