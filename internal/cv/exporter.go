// Package cv はプロフィールから1ページのCV（PDF）を生成する。
//
// レイアウトはA4縦1ページで、左40%がサイドバー、右60%が本文。
// 収まらない内容は切り捨て、2ページ目は作らない。
package cv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/hitoshi/portfolioweb/internal/model"
	"github.com/hitoshi/portfolioweb/internal/security"
)

// ContentType はCVのMIMEタイプ。
const ContentType = "application/pdf"

// ページ寸法（mm）
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	pageMargin   = 14.0
	columnGap    = 7.0
	sidebarRatio = 0.4
	photoSize    = 36.0
	lineHeight   = 5.0
)

// rgb はfpdfに渡す色。
type rgb struct{ r, g, b int }

var (
	colorPage      = rgb{15, 23, 42}
	colorDivider   = rgb{71, 85, 105}
	colorName      = rgb{248, 250, 252}
	colorTitle     = rgb{6, 182, 212}
	colorHeading   = rgb{59, 130, 246}
	colorText      = rgb{203, 213, 225}
	colorMuted     = rgb{148, 163, 184}
	colorStrong    = rgb{241, 245, 249}
	colorCompany   = rgb{56, 189, 248}
	colorProject   = rgb{244, 114, 182}
	colorProjectBg = rgb{30, 41, 59}
	colorDegree    = rgb{167, 139, 250}
)

// Document は生成したCV。
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter はプロフィールからCVを生成する。
type Exporter struct {
	images security.ImageFetcher
	logger *slog.Logger
}

// NewExporter はExporterを生成する。imagesがnilの場合はプロフィール画像を埋め込まない。
func NewExporter(images security.ImageFetcher, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{images: images, logger: logger}
}

// Filename はCVのファイル名を返す。ユーザー名の大文字小文字に関わらず同じ名前になる。
func Filename(username string) string {
	return "cv." + strings.ToLower(username) + ".pdf"
}

// Export はプロフィールからCVを生成する。
// 同じプロフィールからは同じバイト列が生成される。
// 画像の取得や変換に失敗した場合は画像なしで生成を続ける。
func (e *Exporter) Export(ctx context.Context, p *model.Profile) (*Document, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(stableTime(p.UpdatedAt))
	pdf.SetModificationDate(stableTime(p.UpdatedAt))
	pdf.SetCreator("portfolioweb", false)
	pdf.SetTitle(p.Name+" CV", true)
	pdf.SetAuthor(p.Name, true)
	pdf.AddPage()

	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	w.fill(colorPage)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")

	inner := pageWidth - 2*pageMargin
	sidebarW := inner*sidebarRatio - columnGap/2
	mainX := pageMargin + inner*sidebarRatio + columnGap/2
	mainW := inner*(1-sidebarRatio) - columnGap/2

	pdf.SetDrawColor(colorDivider.r, colorDivider.g, colorDivider.b)
	pdf.SetLineWidth(0.3)
	dividerX := pageMargin + inner*sidebarRatio
	pdf.Line(dividerX, pageMargin, dividerX, pageHeight-pageMargin)

	photo := e.photo(ctx, p)

	pdf.ClipRect(pageMargin, pageMargin, sidebarW, pageHeight-2*pageMargin, false)
	w.column(pageMargin, sidebarW)
	e.writeSidebar(w, p, photo)
	pdf.ClipEnd()

	pdf.ClipRect(mainX, pageMargin, mainW, pageHeight-2*pageMargin, false)
	w.column(mainX, mainW)
	writeMain(w, p)
	pdf.ClipEnd()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate CV: %w", err)
	}

	return &Document{
		Filename:    Filename(p.Username),
		ContentType: ContentType,
		Data:        buf.Bytes(),
	}, nil
}

// photo はプロフィール画像を取得してサムネイルに変換する。失敗時はnilを返す。
func (e *Exporter) photo(ctx context.Context, p *model.Profile) []byte {
	if e.images == nil || p.ImageURL == "" {
		return nil
	}
	if !strings.HasPrefix(p.ImageURL, "http://") && !strings.HasPrefix(p.ImageURL, "https://") {
		return nil
	}

	data, err := e.images.FetchImage(ctx, p.ImageURL)
	if err != nil {
		e.logger.Warn("failed to fetch profile image for CV",
			slog.String("profile_id", p.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	thumb, err := makeThumbnail(data)
	if err != nil {
		e.logger.Warn("failed to process profile image for CV",
			slog.String("profile_id", p.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return thumb
}

func (e *Exporter) writeSidebar(w *writer, p *model.Profile, photo []byte) {
	if photo != nil {
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		w.pdf.RegisterImageOptionsReader("profile", opts, bytes.NewReader(photo))
		x := w.x + (w.w-photoSize)/2
		w.pdf.ImageOptions("profile", x, w.y, photoSize, photoSize, false, opts, 0, "")
		w.y += photoSize + 6
	}

	w.text(p.Name, "B", 22, colorName, 9)
	if p.Specialization != "" {
		w.text(p.Specialization, "", 12, colorTitle, 6)
	}
	w.space(4)

	for _, item := range []string{p.Email, p.Phone, p.Country} {
		if item != "" {
			w.text(item, "", 9, colorMuted, 4.5)
		}
	}
	for _, link := range p.Socials.Links() {
		w.text(link.Platform+": "+link.URL, "", 8, colorMuted, 4)
	}

	if len(p.Skills) > 0 {
		w.heading("Skills", false)
		for _, skill := range p.Skills {
			w.text("- "+skill, "", 10, colorText, lineHeight)
		}
	}

	if len(p.SpokenLanguages) > 0 {
		w.heading("Languages", false)
		for _, lang := range p.SpokenLanguages {
			line := lang.Language
			if lang.Proficiency != "" {
				line += " (" + lang.Proficiency + ")"
			}
			w.text(line, "", 10, colorText, lineHeight)
		}
	}
}

func writeMain(w *writer, p *model.Profile) {
	if p.About != "" {
		w.heading("Profile", true)
		w.text(p.About, "", 10, colorText, lineHeight)
	}

	if len(p.Experience) > 0 {
		w.heading("Experience", true)
		for _, exp := range p.Experience {
			w.text(exp.Role, "B", 12, colorStrong, 6)
			sub := joinNonEmpty(" | ", exp.Company, exp.Duration)
			if sub != "" {
				w.text(sub, "I", 10, colorCompany, lineHeight)
			}
			if exp.Description != "" {
				w.text(exp.Description, "", 9, colorText, 4.5)
			}
			w.space(3)
		}
	}

	if len(p.Projects) > 0 {
		w.heading("Projects", true)
		for _, proj := range p.Projects {
			w.project(proj)
		}
	}

	if len(p.Education) > 0 {
		w.heading("Education", true)
		for _, edu := range p.Education {
			w.text(edu.Institution, "B", 11, colorText, lineHeight)
			if sub := joinNonEmpty(" | ", edu.Degree, edu.Year); sub != "" {
				w.text(sub, "I", 9, colorDegree, 4.5)
			}
			w.space(2)
		}
	}

	if len(p.Services) > 0 {
		w.heading("Services", true)
		for _, svc := range p.Services {
			w.text(joinNonEmpty(" | ", svc.Title, svc.Price), "B", 11, colorStrong, lineHeight)
			if svc.Description != "" {
				w.text(svc.Description, "", 9, colorText, 4.5)
			}
			w.space(2)
		}
	}

	if len(p.Certificates) > 0 {
		w.heading("Certificates", true)
		for _, cert := range p.Certificates {
			w.text(cert.Name, "B", 11, colorText, lineHeight)
			if sub := joinNonEmpty(" | ", cert.Issuer, cert.Year); sub != "" {
				w.text(sub, "", 9, colorMuted, 4.5)
			}
			w.space(2)
		}
	}
}

// writer はカラム内の現在位置を管理しながらテキストを書き込む。
type writer struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	x, w float64
	y    float64
}

func (w *writer) column(x, width float64) {
	w.x, w.w, w.y = x, width, pageMargin
}

// full はカラムの下端を超えたかどうかを返す。超えた内容は描画しない。
func (w *writer) full() bool {
	return w.y >= pageHeight-pageMargin
}

func (w *writer) fill(c rgb) {
	w.pdf.SetFillColor(c.r, c.g, c.b)
}

func (w *writer) text(s, style string, size float64, c rgb, h float64) {
	if s == "" || w.full() {
		return
	}
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(c.r, c.g, c.b)
	w.pdf.SetXY(w.x, w.y)
	w.pdf.MultiCell(w.w, h, w.tr(s), "", "L", false)
	w.y = w.pdf.GetY()
}

func (w *writer) heading(title string, upper bool) {
	if upper {
		title = strings.ToUpper(title)
	}
	w.space(4)
	w.text(title, "B", 14, colorHeading, 7)
	w.space(2)
}

func (w *writer) project(proj model.Project) {
	if w.full() {
		return
	}
	start := w.y
	w.y += 2
	saveX, saveW := w.x, w.w
	w.x, w.w = saveX+3, saveW-6
	w.text(proj.Title, "B", 11, colorProject, lineHeight)
	w.text(proj.Link, "", 8, colorCompany, 4)
	w.text(proj.Description, "", 9, colorText, 4.5)
	w.y += 2

	w.x, w.w = saveX, saveW
	// 枠の高さは内容を書き終えるまで決まらない
	w.pdf.SetDrawColor(colorProjectBg.r, colorProjectBg.g, colorProjectBg.b)
	w.pdf.Rect(w.x, start, w.w, w.y-start, "D")
	w.y += 3
}

func (w *writer) space(h float64) {
	w.y += h
}

// stableTime はPDFのメタデータに埋め込む日時を返す。
// 生成のたびに変わらないよう、プロフィールの更新日時に固定する。
func stableTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
