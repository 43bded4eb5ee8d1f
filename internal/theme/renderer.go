// Package theme はプロフィールを公開ページのHTMLに変換する。
//
// テーマはminimal, modern, premium, classicの4種類で、
// 空のセクションは全テーマで出力しない。セクション順を反映するのはpremiumのみで、
// その他のテーマは固定順で描画する。
package theme

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode"

	"github.com/hitoshi/portfolioweb/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// 各テーマの固定セクション順。
var (
	minimalOrder = []model.Section{
		model.SectionProjects,
		model.SectionExperience,
		model.SectionSkills,
		model.SectionServices,
		model.SectionEducation,
		model.SectionCertificates,
		model.SectionLanguages,
	}
	modernOrder = []model.Section{
		model.SectionSkills,
		model.SectionServices,
		model.SectionExperience,
		model.SectionEducation,
		model.SectionCertificates,
		model.SectionProjects,
		model.SectionLanguages,
	}
	classicSidebar = []model.Section{
		model.SectionSkills,
		model.SectionLanguages,
	}
	classicMain = []model.Section{
		model.SectionExperience,
		model.SectionEducation,
		model.SectionProjects,
		model.SectionServices,
		model.SectionCertificates,
	}
)

// sectionView はテンプレートに渡す1セクション分のデータ。
type sectionView struct {
	ID      string
	Title   string
	Profile *model.Profile
}

// pageData は公開ページのテンプレートに渡すデータ。
type pageData struct {
	Variant  model.ThemeID
	Profile  *model.Profile
	Palette  Palette
	Text     *Strings
	Socials  []model.SocialLink
	Initials string
	Sections []sectionView
	Sidebar  []sectionView
}

// Renderer はプロフィールをテーマに従ってHTMLに描画する。
// 状態を持たないため複数のgoroutineから同時に使用できる。
type Renderer struct {
	minimal  *template.Template
	modern   *template.Template
	premium  *template.Template
	classic  *template.Template
	notFound *template.Template
	dict     *Dictionary
}

// NewRenderer は埋め込みのテンプレートと辞書を読み込んでRendererを生成する。
func NewRenderer() (*Renderer, error) {
	dict, err := LoadDictionary()
	if err != nil {
		return nil, err
	}

	r := &Renderer{dict: dict}
	for _, v := range []struct {
		dest **template.Template
		file string
	}{
		{&r.minimal, "templates/minimal.html"},
		{&r.modern, "templates/modern.html"},
		{&r.premium, "templates/premium.html"},
		{&r.classic, "templates/classic.html"},
	} {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/sections.html", v.file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse theme template %s: %w", v.file, err)
		}
		*v.dest = t
	}

	r.notFound, err = template.ParseFS(templateFS, "templates/notfound.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse not found template: %w", err)
	}

	return r, nil
}

// Render はプロフィールのテーマ設定に従って公開ページを書き出す。
// 描画が途中で失敗した場合は何も書き出さない。
func (r *Renderer) Render(w io.Writer, p *model.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}

	variant := model.ParseThemeID(string(p.ThemeSettings.ThemeID))
	data := pageData{
		Variant:  variant,
		Profile:  p,
		Palette:  PaletteFor(backgroundFor(variant, p.ThemeSettings.Background)),
		Text:     r.dict.Lookup(p.Language),
		Socials:  p.Socials.Links(),
		Initials: initials(p.Name, p.Username),
	}

	var tmpl *template.Template
	switch variant {
	case model.ThemeMinimal:
		tmpl = r.minimal
		data.Sections = r.sections(p, data.Text, minimalOrder)
	case model.ThemeModern:
		tmpl = r.modern
		data.Sections = r.sections(p, data.Text, modernOrder)
	case model.ThemePremium:
		tmpl = r.premium
		data.Sections = r.sections(p, data.Text, p.EffectiveSectionOrder())
	case model.ThemeClassic:
		tmpl = r.classic
		data.Sidebar = r.sections(p, data.Text, classicSidebar)
		data.Sections = r.sections(p, data.Text, classicMain)
	default:
		return fmt.Errorf("unsupported theme: %s", variant)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return fmt.Errorf("failed to render %s theme: %w", variant, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderNotFound はポートフォリオが存在しない場合のページを書き出す。
func (r *Renderer) RenderNotFound(w io.Writer, username string) error {
	var buf bytes.Buffer
	if err := r.notFound.ExecuteTemplate(&buf, "notfound", struct{ Username string }{username}); err != nil {
		return fmt.Errorf("failed to render not found page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// sections は表示順のうち内容のあるセクションだけを返す。
func (r *Renderer) sections(p *model.Profile, text *Strings, order []model.Section) []sectionView {
	views := make([]sectionView, 0, len(order))
	for _, s := range order {
		if !HasContent(p, s) {
			continue
		}
		views = append(views, sectionView{
			ID:      strings.ToLower(string(s)),
			Title:   text.SectionTitle(string(s)),
			Profile: p,
		})
	}
	return views
}

// HasContent はセクションに表示する項目があるかどうかを返す。
func HasContent(p *model.Profile, s model.Section) bool {
	switch s {
	case model.SectionServices:
		return len(p.Services) > 0
	case model.SectionExperience:
		return len(p.Experience) > 0
	case model.SectionSkills:
		return len(p.Skills) > 0
	case model.SectionProjects:
		return len(p.Projects) > 0
	case model.SectionEducation:
		return len(p.Education) > 0
	case model.SectionCertificates:
		return len(p.Certificates) > 0
	case model.SectionLanguages:
		return len(p.SpokenLanguages) > 0
	default:
		return false
	}
}

// backgroundFor は背景トークンが未設定の場合にテーマごとの既定値を返す。
func backgroundFor(variant model.ThemeID, token string) string {
	if strings.TrimSpace(token) != "" {
		return token
	}
	switch variant {
	case model.ThemeMinimal:
		return "bg-white"
	case model.ThemeClassic:
		return "bg-slate-50"
	default:
		return model.DefaultBackground
	}
}

// initials はアバター画像がない場合に表示する頭文字を返す。
func initials(name, fallback string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
		if b.Len() >= 2 {
			break
		}
	}
	if b.Len() == 0 && fallback != "" {
		return strings.ToUpper(fallback[:1])
	}
	return b.String()
}
