package model

import "strings"

// ThemeID は公開ページのテーマ。閉じた列挙型として扱う。
type ThemeID string

const (
	ThemeMinimal ThemeID = "minimal"
	ThemeModern  ThemeID = "modern"
	ThemePremium ThemeID = "premium"
	ThemeClassic ThemeID = "classic"
)

// themeIDPrefix は保存済みデータに残る旧形式（"theme-minimal"等）の接頭辞。
const themeIDPrefix = "theme-"

// ParseThemeID は文字列をThemeIDに変換する。
// "minimal" と "theme-minimal" の両形式を受け付け、未知の値や空文字はThemeMinimalとする。
func ParseThemeID(raw string) ThemeID {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.TrimPrefix(id, themeIDPrefix)

	switch ThemeID(id) {
	case ThemeMinimal, ThemeModern, ThemePremium, ThemeClassic:
		return ThemeID(id)
	case "bento":
		return ThemeModern
	default:
		return ThemeMinimal
	}
}
