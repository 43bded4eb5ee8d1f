// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はプロフィールの自由記述欄からHTMLを取り除く。
// 公開ページはhtml/templateでエスケープして描画するため、
// 保存時点ではタグを含まないプレーンテキストとして扱う。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプロフィール入力のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// SanitizeText は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleタグは中身ごと除去する。
	SanitizeText(raw string) string

	// SanitizeURL はhttp/https/mailtoのURLと、"/"で始まる同一オリジンのパスのみを通し、
	// それ以外は空文字列を返す。
	SanitizeURL(raw string) string
}

// allowedLinkSchemes はプロフィール内のリンクとして許可するスキーム。
var allowedLinkSchemes = []string{"http", "https", "mailto"}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有してよい。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText は全てのHTMLタグを除去したプレーンテキストを返す。
// bluemondayがエスケープした文字参照は元の文字に戻す。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// SanitizeURL はリンクとして安全なURLのみを返す。
func (s *textSanitizer) SanitizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	if isSameOriginPath(trimmed, parsed) {
		return trimmed
	}
	scheme := strings.ToLower(parsed.Scheme)
	for _, allowed := range allowedLinkSchemes {
		if scheme == allowed {
			if scheme != "mailto" && parsed.Host == "" {
				return ""
			}
			return trimmed
		}
	}
	return ""
}

// isSameOriginPath はアップロード済みファイルなど "/uploads/a.png" 形式のパスかを返す。
// "//host" や "/\host" はブラウザが別ホストとして解釈するため除外する。
func isSameOriginPath(raw string, parsed *url.URL) bool {
	if parsed.Scheme != "" || parsed.Host != "" || parsed.Opaque != "" {
		return false
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return false
	}
	return !strings.Contains(raw, "\\")
}
