package edge

import "testing"

var defaultProtected = []string{"/dashboard", "/profile", "/update-profile", "/api/upload"}

func TestGateAuthorize_ProtectedWithoutToken_RedirectsWithCallback(t *testing.T) {
	g := NewGate(defaultProtected, "/sign-in")

	tests := []struct {
		path string
		want string
	}{
		{"/dashboard", "/sign-in?callbackUrl=%2Fdashboard"},
		{"/dashboard/settings", "/sign-in?callbackUrl=%2Fdashboard%2Fsettings"},
		{"/profile", "/sign-in?callbackUrl=%2Fprofile"},
		{"/update-profile", "/sign-in?callbackUrl=%2Fupdate-profile"},
		{"/api/upload", "/sign-in?callbackUrl=%2Fapi%2Fupload"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := g.Authorize(tt.path, false)
			if d.Allow {
				t.Fatalf("Authorize(%q, false) allowed, want redirect", tt.path)
			}
			if d.Target != tt.want {
				t.Errorf("Target = %q, want %q", d.Target, tt.want)
			}
		})
	}
}

func TestGateAuthorize_ProtectedWithToken_Allows(t *testing.T) {
	g := NewGate(defaultProtected, "/sign-in")

	for _, path := range defaultProtected {
		if d := g.Authorize(path, true); !d.Allow {
			t.Errorf("Authorize(%q, true) = %+v, want allow", path, d)
		}
	}
}

func TestGateAuthorize_UnprotectedPaths_AlwaysAllow(t *testing.T) {
	g := NewGate(defaultProtected, "/sign-in")

	paths := []string{"/", "/sign-in", "/pricing", "/portfolio/kim", "/api/profile", "/api/cv/download"}
	for _, path := range paths {
		for _, token := range []bool{true, false} {
			if d := g.Authorize(path, token); !d.Allow {
				t.Errorf("Authorize(%q, %v) = %+v, want allow", path, token, d)
			}
		}
	}
}

func TestNewGate_CustomSignInAndBlankPrefixes(t *testing.T) {
	g := NewGate([]string{" /settings ", ""}, "/login")

	if g.IsProtected("/anything") {
		t.Error("blank prefix must not protect every path")
	}
	d := g.Authorize("/settings", false)
	if d.Target != "/login?callbackUrl=%2Fsettings" {
		t.Errorf("Target = %q, want %q", d.Target, "/login?callbackUrl=%2Fsettings")
	}

	g = NewGate([]string{"/dashboard"}, "")
	if d := g.Authorize("/dashboard", false); d.Target != "/sign-in?callbackUrl=%2Fdashboard" {
		t.Errorf("Target = %q, want default sign-in path", d.Target)
	}
}
