package theme

import "testing"

func TestPaletteFor_LightAndDarkTokens(t *testing.T) {
	tests := []struct {
		token    string
		wantDark bool
		wantBg   string
	}{
		{"bg-white", false, "#ffffff"},
		{"bg-slate-50", false, "#f8fafc"},
		{" BG-WHITE ", false, "#ffffff"},
		{"bg-slate-950", true, "#020617"},
		{"bg-black", true, "#000000"},
		{"bg-rose-100", false, lightPalette.Background},
		{"bg-custom-night", true, darkPalette.Background},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p := PaletteFor(tt.token)
			if p.Dark != tt.wantDark {
				t.Errorf("Dark = %v, want %v", p.Dark, tt.wantDark)
			}
			if p.Background != tt.wantBg {
				t.Errorf("Background = %q, want %q", p.Background, tt.wantBg)
			}
		})
	}
}

func TestBackgroundFor_VariantDefaults(t *testing.T) {
	r := map[string]string{
		"minimal": backgroundFor("minimal", ""),
		"classic": backgroundFor("classic", " "),
		"modern":  backgroundFor("modern", ""),
		"premium": backgroundFor("premium", ""),
		"custom":  backgroundFor("minimal", "bg-black"),
	}
	want := map[string]string{
		"minimal": "bg-white",
		"classic": "bg-slate-50",
		"modern":  "bg-slate-950",
		"premium": "bg-slate-950",
		"custom":  "bg-black",
	}
	for k, v := range want {
		if r[k] != v {
			t.Errorf("%s background = %q, want %q", k, r[k], v)
		}
	}
}

func TestDictionaryLookup(t *testing.T) {
	d, err := LoadDictionary()
	if err != nil {
		t.Fatalf("LoadDictionary() error: %v", err)
	}

	tests := []struct {
		language string
		wantCode string
	}{
		{"en", "en"},
		{"English", "en"},
		{"French", "fr"},
		{"fr-CA", "fr"},
		{"JA", "ja"},
		{"klingon", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := d.Lookup(tt.language); got.Code != tt.wantCode {
			t.Errorf("Lookup(%q).Code = %q, want %q", tt.language, got.Code, tt.wantCode)
		}
	}

	en := d.Lookup("en")
	if en.SectionTitle("Languages") != "Spoken Languages" {
		t.Errorf("SectionTitle(Languages) = %q", en.SectionTitle("Languages"))
	}
}

func TestParseDictionary_RequiresFallback(t *testing.T) {
	if _, err := parseDictionary([]byte("fr:\n  footer: x\n")); err == nil {
		t.Error("expected error without English entry")
	}
}
