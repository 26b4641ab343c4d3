package middleware

import (
	"context"
	"net/http"

	"barbershop/backend/internal/i18n"

	"golang.org/x/text/language"
)

const langKey ctxKey = "lang"

// WithLanguage picks the response language from Accept-Language.
func WithLanguage(def language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := i18n.Match(r.Header.Get("Accept-Language"), def)
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), langKey, tag)))
		})
	}
}

func Language(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(langKey).(language.Tag); ok {
		return tag
	}
	return i18n.Default
}
