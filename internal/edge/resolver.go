// Package edge はすべてのリクエストの入口で行う処理を提供する。
// ホスト名からのテナント解決、保護パスのアクセス制御、内部パスへの書き換えを扱う。
package edge

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// portfolioPathPrefix はパス形式でテナントを指定する際の接頭辞。
const portfolioPathPrefix = "/portfolio/"

// reservedSubdomains はメインアプリケーションを指すサブドメイン。
var reservedSubdomains = []string{"www", "app"}

// Tenant は解決されたポートフォリオの持ち主を表す。
type Tenant struct {
	// Username は受信したままの大文字小文字を保持する。検索時に正規化する。
	Username string
	// FromHost はホスト名から解決された場合にtrue。
	FromHost bool
}

// Resolver はホスト名またはパスからテナントを解決する。
type Resolver struct {
	rootDomain string
}

// NewResolver はルートドメインを指定してResolverを生成する。
// ルートドメインは小文字化し、国際化ドメイン名はASCII形式に変換する。
func NewResolver(rootDomain string) *Resolver {
	return &Resolver{rootDomain: normalizeDomain(rootDomain)}
}

// RootDomain は正規化済みのルートドメインを返す。
func (r *Resolver) RootDomain() string {
	return r.rootDomain
}

// Resolve はホスト名を優先してテナントを解決し、
// 見つからなければ /portfolio/{username} のパス接頭辞を参照する。
func (r *Resolver) Resolve(host, path string) (Tenant, bool) {
	if username, ok := r.ResolveHost(host); ok {
		return Tenant{Username: username, FromHost: true}, true
	}
	if username, ok := ResolvePath(path); ok {
		return Tenant{Username: username}, true
	}
	return Tenant{}, false
}

// ResolveHost はホスト名のみを使ってテナントを解決する。
// ルートドメイン自身と www. / app. の付いたホストはメインアプリケーションとして扱う。
func (r *Resolver) ResolveHost(host string) (string, bool) {
	if r.rootDomain == "" {
		return "", false
	}

	hostname := strings.TrimSuffix(stripPort(host), ".")
	lower := strings.ToLower(hostname)

	if lower == r.rootDomain {
		return "", false
	}
	for _, sub := range reservedSubdomains {
		if lower == sub+"."+r.rootDomain {
			return "", false
		}
	}

	suffix := "." + r.rootDomain
	if !strings.HasSuffix(lower, suffix) {
		return "", false
	}

	// 小文字化でバイト長が変わる場合は小文字側から切り出す
	source := hostname
	if len(source) != len(lower) {
		source = lower
	}
	tenant := source[:len(source)-len(suffix)]
	if tenant == "" {
		return "", false
	}
	return tenant, true
}

// ResolvePath は /portfolio/{username} 形式のパスからユーザー名を取り出す。
func ResolvePath(path string) (string, bool) {
	if !strings.HasPrefix(path, portfolioPathPrefix) {
		return "", false
	}
	rest := path[len(portfolioPathPrefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// stripPort はホストからポート番号を取り除く。IPv6リテラルにも対応する。
func stripPort(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// "[::1]" のようなポートなしのIPv6リテラル
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

func normalizeDomain(domain string) string {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(d); err == nil {
		return ascii
	}
	return d
}
