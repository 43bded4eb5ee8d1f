// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrBlockedURL は取得を許可しないURLを示す。
var ErrBlockedURL = errors.New("url is not allowed")

// SSRFGuardService はユーザー指定URLをサーバー側から取得する際の防御を提供する。
// プロフィール画像をCVへ埋め込むときに使う。
type SSRFGuardService interface {
	// NewSafeClient は接続時に宛先IPを検査するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL はDNS解決を行わずにURLを検査する。
	ValidateURL(rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

// blockedPrefixes はURLに直接書かれたIPとして拒否する範囲。
// 名前解決後の宛先はsafeurlのDialerが検査する。
var blockedPrefixes = mustParsePrefixes(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
)

// blockedHostSuffixes はクラスタ内部やローカルを指すホスト名の接尾辞。
var blockedHostSuffixes = []string{
	".localhost",
	".local",
	".internal",
	".svc",
}

func mustParsePrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// GuardOption はssrfGuardの設定を変更する。
type GuardOption func(*ssrfGuard)

// WithAllowedPorts は接続を許可するポートを置き換える。
func WithAllowedPorts(ports ...int) GuardOption {
	return func(g *ssrfGuard) {
		g.allowedPorts = ports
	}
}

type ssrfGuard struct {
	allowedPorts []int
}

// NewSSRFGuard はSSRFGuardServiceを生成する。既定では80と443のみ許可する。
func NewSSRFGuard(opts ...GuardOption) *ssrfGuard {
	g := &ssrfGuard{allowedPorts: []int{80, 443}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSafeClient はsafeurlのクライアントを返す。
// プライベート、ループバック、リンクローカルへの接続はDial時点で失敗する。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.allowedPorts...).
		Build()

	return safeurl.Client(config).Client
}

func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: empty URL", ErrBlockedURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}
	if !slices.Contains(allowedSchemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("%w: scheme %q", ErrBlockedURL, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL", ErrBlockedURL)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrBlockedURL)
	}
	if err := g.checkPort(u); err != nil {
		return err
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(addr) {
			return fmt.Errorf("%w: address %s", ErrBlockedURL, addr)
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("%w: host %s", ErrBlockedURL, host)
	}
	return nil
}

// checkPort は明示されたポートが許可されているかを検査する。
// 省略時はスキームの既定ポートとみなす。
func (g *ssrfGuard) checkPort(u *url.URL) error {
	p := u.Port()
	if p == "" {
		return nil
	}
	var port int
	if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
		return fmt.Errorf("%w: port %q", ErrBlockedURL, p)
	}
	if !slices.Contains(g.allowedPorts, port) {
		return fmt.Errorf("%w: port %d", ErrBlockedURL, port)
	}
	return nil
}

// isBlockedAddr はIPv4射影アドレスを展開してから範囲を照合する。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	if host == "localhost" {
		return true
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	// 単一ラベルのホスト名は社内DNSを引くだけなので拒否する
	return !strings.Contains(host, ".")
}
