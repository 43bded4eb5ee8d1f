package theme

import "strings"

// Palette は背景トークンから導出した配色。テーマの種類には依存しない。
type Palette struct {
	Token      string
	Dark       bool
	Background string
	Surface    string
	Text       string
	Title      string
	Muted      string
	Border     string
	Accent     string
}

// backgroundColors は既知の背景トークンとCSSカラーの対応。
var backgroundColors = map[string]string{
	"bg-white":       "#ffffff",
	"bg-slate-50":    "#f8fafc",
	"bg-slate-100":   "#f1f5f9",
	"bg-gray-50":     "#f9fafb",
	"bg-zinc-50":     "#fafafa",
	"bg-stone-50":    "#fafaf9",
	"bg-black":       "#000000",
	"bg-slate-900":   "#0f172a",
	"bg-slate-950":   "#020617",
	"bg-gray-900":    "#111827",
	"bg-gray-950":    "#030712",
	"bg-zinc-900":    "#18181b",
	"bg-zinc-950":    "#09090b",
	"bg-neutral-950": "#0a0a0a",
	"bg-blue-950":    "#172554",
	"bg-indigo-950":  "#1e1b4b",
	"bg-emerald-950": "#022c22",
}

var (
	lightPalette = Palette{
		Background: "#ffffff",
		Surface:    "#f8fafc",
		Text:       "#475569",
		Title:      "#0f172a",
		Muted:      "#94a3b8",
		Border:     "#e2e8f0",
		Accent:     "#2563eb",
	}
	darkPalette = Palette{
		Dark:       true,
		Background: "#020617",
		Surface:    "#ffffff0d",
		Text:       "#cbd5e1",
		Title:      "#ffffff",
		Muted:      "#64748b",
		Border:     "#ffffff1a",
		Accent:     "#34d399",
	}
)

// IsLightBackground は背景トークンが明るい色かどうかを返す。
// bg-whiteと、-50/-100の淡色トークンを明るい色とみなす。
func IsLightBackground(token string) bool {
	t := strings.ToLower(strings.TrimSpace(token))
	return t == "bg-white" || strings.HasSuffix(t, "-50") || strings.HasSuffix(t, "-100")
}

// PaletteFor は背景トークンに対応する配色を返す。
// 未知のトークンは明暗の判定だけを行い、既定の背景色を使う。
func PaletteFor(token string) Palette {
	t := strings.ToLower(strings.TrimSpace(token))

	p := darkPalette
	if IsLightBackground(t) {
		p = lightPalette
	}
	p.Token = t
	if c, ok := backgroundColors[t]; ok {
		p.Background = c
	}
	return p
}
