package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey carries the negotiated UI locale in the request context.
var LocaleKey = localeContextKey{}

var supported = []language.Tag{
	language.English,
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

// I18N negotiates the UI locale from X-Locale or Accept-Language and stores
// it in the request context. Unrecognized preferences fall back to the
// configured default.
func I18N(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	prefs := []string{}
	if v := r.Header.Get("X-Locale"); v != "" {
		prefs = append(prefs, v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		prefs = append(prefs, v)
	}
	for _, pref := range prefs {
		if tag, ok := matchLocale(pref); ok {
			return tag
		}
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

func matchLocale(pref string) (string, bool) {
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, index, conf := matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	base, _ := supported[index].Base()
	return base.String(), true
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
