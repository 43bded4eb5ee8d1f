package model

import "time"

// ProviderGoogle はGoogleサインインで作成されたidentityのprovider値。
const ProviderGoogle = "google"

// Identity は外部IdPのアカウントとプロフィールの紐付け。
// 1つのプロフィールに複数のidentityを紐付けられる。
type Identity struct {
	ID             string
	ProfileID      string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はサーバー側で保持するログインセッション。
// IDはセッションJWTのsidと一致し、行を削除するとトークンも無効になる。
type Session struct {
	ID        string
	ProfileID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はnow時点でセッションが失効しているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
