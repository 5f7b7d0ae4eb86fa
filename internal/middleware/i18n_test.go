package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func localeProbe(t *testing.T, headers map[string]string, fallback string) string {
	t.Helper()
	var got string
	handler := I18N(fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/agent/chat", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestI18NHeaderPrecedence(t *testing.T) {
	got := localeProbe(t, map[string]string{
		"X-Locale":        "zh-CN",
		"Accept-Language": "en-US,en;q=0.9",
	}, "en")
	if got != "zh" {
		t.Fatalf("X-Locale should win: got %q", got)
	}
}

func TestI18NAcceptLanguage(t *testing.T) {
	got := localeProbe(t, map[string]string{
		"Accept-Language": "zh-TW,zh;q=0.9,en;q=0.5",
	}, "en")
	if got != "zh" {
		t.Fatalf("locale mismatch: %q", got)
	}
}

func TestI18NFallback(t *testing.T) {
	if got := localeProbe(t, nil, "en"); got != "en" {
		t.Fatalf("fallback mismatch: %q", got)
	}
}

func TestI18NUnmatchedPreferenceUsesFallback(t *testing.T) {
	got := localeProbe(t, map[string]string{
		"X-Locale":        "tlh",
		"Accept-Language": "!!!",
	}, "zh")
	if got != "zh" {
		t.Fatalf("unmatched preference should use fallback: got %q", got)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := LocaleFromContext(req.Context()); got != "en" {
		t.Fatalf("default locale mismatch: %q", got)
	}
}
