package edge

import (
	"net/url"
	"strings"
)

// callbackParam はサインイン後の戻り先パスを渡すクエリパラメータ名。
const callbackParam = "callbackUrl"

// Decision はアクセス制御の判定結果。
// Allowがfalseの場合、Targetにリダイレクト先が入る。
type Decision struct {
	Allow  bool
	Target string
}

// Gate は保護パスに対する認証の有無を判定する。
// トークンの持ち主とリソースの所有者の一致までは検証しない。
type Gate struct {
	protected  []string
	signInPath string
}

// NewGate は保護パス接頭辞とサインインページのパスを指定してGateを生成する。
func NewGate(protectedPrefixes []string, signInPath string) *Gate {
	prefixes := make([]string, 0, len(protectedPrefixes))
	for _, p := range protectedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if signInPath == "" {
		signInPath = "/sign-in"
	}
	return &Gate{protected: prefixes, signInPath: signInPath}
}

// IsProtected はパスが保護パス接頭辞のいずれかで始まるかを返す。
func (g *Gate) IsProtected(path string) bool {
	for _, prefix := range g.protected {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Authorize はパスとトークンの有無から判定を行う。
// 保護パスかつ有効なトークンがない場合のみ、元のパスをcallbackUrlに付けて
// サインインページへ誘導する。
func (g *Gate) Authorize(path string, hasValidToken bool) Decision {
	if hasValidToken || !g.IsProtected(path) {
		return Decision{Allow: true}
	}
	query := url.Values{callbackParam: {path}}
	return Decision{Target: g.signInPath + "?" + query.Encode()}
}
