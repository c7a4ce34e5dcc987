package i18n

import "testing"

func TestGetCatalogFallsBackToBaseLocale(t *testing.T) {
	if got := GetCatalog("fr-FR").Locale(); got != BaseLocale {
		t.Fatalf("locale = %q, want %q", got, BaseLocale)
	}
	if got := GetCatalog("").Locale(); got != BaseLocale {
		t.Fatalf("locale = %q, want %q", got, BaseLocale)
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	got := GetCatalog("en-US").Format(CodeChallengeOutOfRange, map[string]string{
		"Distance": "160",
		"Radius":   "150",
	})
	want := "You are 160 m from the site; the limit is 150 m."
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatFallsBackToBaseMessageThenCode(t *testing.T) {
	if got := GetCatalog("de-DE").Format(CodeNotFound, nil); got != "Not found." {
		t.Fatalf("Format = %q, want base message", got)
	}
	if got := GetCatalog("en-US").Format("NO_SUCH_CODE", nil); got != "NO_SUCH_CODE" {
		t.Fatalf("Format = %q, want code", got)
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "en-US"},
		{header: "de-AT,de;q=0.9,en;q=0.5", want: "de-DE"},
		{header: "en-GB", want: "en-US"},
		{header: "ja", want: "en-US"},
		{header: "!!garbage", want: "en-US"},
	}
	for _, tc := range tests {
		if got := Negotiate(tc.header); got != tc.want {
			t.Errorf("Negotiate(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
