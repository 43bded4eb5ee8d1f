package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/portfolioweb/internal/model"
)

const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserInfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"

	googleTimeout = 10 * time.Second

	// maxGoogleResponseSize はトークン応答とユーザー情報応答の読み込み上限。
	maxGoogleResponseSize = 64 << 10
)

// ErrEmailNotVerified はGoogleアカウントのメールアドレスが未確認であることを示す。
// 未確認のメールで既存プロフィールへ紐付くのを防ぐために拒否する。
var ErrEmailNotVerified = errors.New("google account email is not verified")

// GoogleOAuthConfig はGoogleサインインの設定。
// AuthURL, TokenURL, UserInfoURLは空なら本番のエンドポイントを使う。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleOAuthProvider はGoogleの認可コードフローを実装するOAuthProvider。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
	client *http.Client
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	config.AuthURL = orDefault(config.AuthURL, googleAuthEndpoint)
	config.TokenURL = orDefault(config.TokenURL, googleTokenEndpoint)
	config.UserInfoURL = orDefault(config.UserInfoURL, googleUserInfoEndpoint)
	return &GoogleOAuthProvider{
		config: config,
		client: &http.Client{Timeout: googleTimeout},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GetLoginURL は同意画面へのURLを返す。
// 複数アカウントを持つユーザーのため、毎回アカウント選択を表示させる。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "online")
	q.Set("prompt", "select_account")
	q.Set("state", state)
	return p.config.AuthURL + "?" + q.Encode()
}

// googleError はGoogleのOAuthエンドポイントが返すエラー応答。
type googleError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *googleError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("google responded with status %d", e.Status)
	}
	if e.Description == "" {
		return fmt.Sprintf("google responded with status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("google responded with status %d: %s (%s)", e.Status, e.Code, e.Description)
}

type googleToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}

	token, err := p.redeem(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem authorization code: %w", err)
	}

	claims, err := p.userInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google user info: %w", err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("google user info has no subject")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &OAuthUserInfo{
		ProviderUserID: claims.Sub,
		Email:          claims.Email,
		Name:           claims.Name,
		Picture:        claims.Picture,
		Provider:       model.ProviderGoogle,
	}, nil
}

func (p *GoogleOAuthProvider) redeem(ctx context.Context, code string) (*googleToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", p.config.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token googleToken
	if err := p.do(req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &token, nil
}

func (p *GoogleOAuthProvider) userInfo(ctx context.Context, accessToken string) (*googleClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var claims googleClaims
	if err := p.do(req, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// do はリクエストを送信し、200ならJSONをoutへ読み込む。
// それ以外は*googleErrorを返す。
func (p *GoogleOAuthProvider) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGoogleResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		gerr := &googleError{Status: resp.StatusCode}
		// エラー本文がJSONでない場合はステータスだけを返す
		_ = json.Unmarshal(body, gerr)
		return gerr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
