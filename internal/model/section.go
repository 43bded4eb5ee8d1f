package model

import "strings"

// Section はポートフォリオのセクション名。
type Section string

const (
	SectionServices     Section = "Services"
	SectionExperience   Section = "Experience"
	SectionSkills       Section = "Skills"
	SectionProjects     Section = "Projects"
	SectionEducation    Section = "Education"
	SectionCertificates Section = "Certificates"
	SectionLanguages    Section = "Languages"
)

// DefaultSectionOrder はsectionOrder未設定時の並び順。
var DefaultSectionOrder = []Section{
	SectionServices,
	SectionExperience,
	SectionSkills,
	SectionProjects,
	SectionEducation,
	SectionCertificates,
	SectionLanguages,
}

// ParseSection は既知のセクション名を返す。大文字小文字は区別しない。
func ParseSection(name string) (Section, bool) {
	trimmed := strings.TrimSpace(name)
	for _, s := range DefaultSectionOrder {
		if strings.EqualFold(string(s), trimmed) {
			return s, true
		}
	}
	return "", false
}

// NormalizeSectionOrder は未知のセクション名を除外し、重複は最初の出現のみ残す。
func NormalizeSectionOrder(names []string) []Section {
	seen := make(map[Section]bool, len(names))
	order := make([]Section, 0, len(names))
	for _, name := range names {
		s, ok := ParseSection(name)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
	}
	return order
}

// EffectiveSectionOrder は描画に使う並び順を返す。空の場合は既定順となる。
func (p *Profile) EffectiveSectionOrder() []Section {
	if len(p.SectionOrder) == 0 {
		return DefaultSectionOrder
	}
	return p.SectionOrder
}
