package theme

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// fallbackLanguage は未知の言語に使う辞書のキー。
const fallbackLanguage = "en"

// Strings は公開ページに表示する1言語分の文言。
type Strings struct {
	Code    string   `yaml:"-"`
	Aliases []string `yaml:"aliases"`
	RTL     bool     `yaml:"rtl"`
	Hero    struct {
		CTA    string `yaml:"cta"`
		Resume string `yaml:"resume"`
	} `yaml:"hero"`
	Sections struct {
		About        string `yaml:"about"`
		Skills       string `yaml:"skills"`
		Services     string `yaml:"services"`
		Experience   string `yaml:"experience"`
		Projects     string `yaml:"projects"`
		Education    string `yaml:"education"`
		Certificates string `yaml:"certificates"`
		Languages    string `yaml:"languages"`
		Contact      string `yaml:"contact"`
		ContactDesc  string `yaml:"contact_desc"`
		ContactBtn   string `yaml:"contact_btn"`
	} `yaml:"sections"`
	Footer string `yaml:"footer"`
}

// Dictionary は言語コードまたは言語名から文言を引く。
type Dictionary struct {
	byKey map[string]*Strings
}

// LoadDictionary は埋め込みの辞書を読み込む。
func LoadDictionary() (*Dictionary, error) {
	return parseDictionary(dictionaryYAML)
}

func parseDictionary(data []byte) (*Dictionary, error) {
	var raw map[string]*Strings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	if raw[fallbackLanguage] == nil {
		return nil, fmt.Errorf("dictionary has no %q entry", fallbackLanguage)
	}

	d := &Dictionary{byKey: make(map[string]*Strings)}
	for code, s := range raw {
		if s == nil {
			continue
		}
		s.Code = code
		d.byKey[strings.ToLower(code)] = s
		for _, alias := range s.Aliases {
			d.byKey[strings.ToLower(alias)] = s
		}
	}
	return d, nil
}

// Lookup は言語に対応する文言を返す。未知の言語は英語になる。
// "fr"、"French"、"fr-CA" のいずれの形式も受け付ける。
func (d *Dictionary) Lookup(language string) *Strings {
	key := strings.ToLower(strings.TrimSpace(language))
	if s, ok := d.byKey[key]; ok {
		return s
	}
	if i := strings.IndexAny(key, "-_"); i > 0 {
		if s, ok := d.byKey[key[:i]]; ok {
			return s
		}
	}
	return d.byKey[fallbackLanguage]
}

// SectionTitle はセクションの見出しを返す。
func (s *Strings) SectionTitle(name string) string {
	switch name {
	case "Services":
		return s.Sections.Services
	case "Experience":
		return s.Sections.Experience
	case "Skills":
		return s.Sections.Skills
	case "Projects":
		return s.Sections.Projects
	case "Education":
		return s.Sections.Education
	case "Certificates":
		return s.Sections.Certificates
	case "Languages":
		return s.Sections.Languages
	default:
		return name
	}
}
