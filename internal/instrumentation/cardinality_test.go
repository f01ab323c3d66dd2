package instrumentation

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/schedule":        "/schedule",
		"/oauth2callback":  "/oauth2callback",
		"/debug/token":     "/debug/token",
		"/wp-admin.php":    "other",
		"/schedule/../etc": "other",
		"":                 "other",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractUserDomain(t *testing.T) {
	tests := map[string]string{
		"ada@example.com": "example.com",
		"ada@Example.COM": "example.com",
		"invalid":         "unknown",
		"ada@":            "unknown",
		"":                "unknown",
	}
	for in, want := range tests {
		if got := ExtractUserDomain(in); got != want {
			t.Errorf("ExtractUserDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
