package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"barbershop/backend/internal/models"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type verifierFunc func(ctx context.Context, idToken string) (*auth.Token, error)

func (f verifierFunc) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return f(ctx, idToken)
}

var verifier = verifierFunc(func(_ context.Context, idToken string) (*auth.Token, error) {
	switch idToken {
	case "client":
		return &auth.Token{UID: "u1", Claims: map[string]any{"name": "Dana", "email": "dana@example.com"}}, nil
	case "admin":
		return &auth.Token{UID: "u2", Claims: map[string]any{"role": "admin"}}, nil
	}
	return nil, errors.New("bad token")
})

func noContent(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWithAuth(t *testing.T) {
	var got *AuthUser
	h := WithAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetAuthUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tok := range []string{"", "nope"} {
		if rec := serve(h, tok); rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: %d", tok, rec.Code)
		}
	}

	if rec := serve(h, "client"); rec.Code != http.StatusNoContent {
		t.Fatalf("client: %d", rec.Code)
	}
	want := models.Identity{UID: "u1", DisplayName: "Dana", Email: "dana@example.com"}
	if got == nil || got.Identity() != want {
		t.Fatalf("identity = %+v", got)
	}
}

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		claims map[string]any
		want   bool
	}{
		{nil, false},
		{map[string]any{"admin": true}, true},
		{map[string]any{"admin": false}, false},
		{map[string]any{"role": "admin"}, true},
		{map[string]any{"role": "staff"}, false},
	}
	for _, c := range cases {
		if got := IsAdmin(c.claims); got != c.want {
			t.Errorf("IsAdmin(%v) = %v", c.claims, got)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	isAdmin := func(who models.Identity) bool { return who.Admin }
	h := WithAuth(verifier)(RequireAdmin(isAdmin)(http.HandlerFunc(noContent)))

	if rec := serve(h, "client"); rec.Code != http.StatusForbidden {
		t.Fatalf("client: %d", rec.Code)
	}
	if rec := serve(h, "admin"); rec.Code != http.StatusNoContent {
		t.Fatalf("admin: %d", rec.Code)
	}
	if rec := serve(RequireAdmin(isAdmin)(http.HandlerFunc(noContent)), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no user: %d", rec.Code)
	}
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(2)
	h := WithAuth(verifier)(rl.Middleware(http.HandlerFunc(noContent)))

	for i := 0; i < 2; i++ {
		if rec := serve(h, "client"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	if rec := serve(h, "client"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: %d", rec.Code)
	}
	if rec := serve(h, "admin"); rec.Code != http.StatusNoContent {
		t.Fatalf("other user: %d", rec.Code)
	}
}

func TestWithLanguage(t *testing.T) {
	var got language.Tag
	h := WithLanguage(language.Hebrew)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Language(r.Context())
	}))

	cases := map[string]language.Tag{
		"":                language.Hebrew,
		"en-US,en;q=0.9":  language.English,
		"he-IL":           language.Hebrew,
		"fr-FR":           language.Hebrew,
		"not a language!": language.Hebrew,
	}
	for header, want := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept-Language", header)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != want {
			t.Errorf("%q: got %s, want %s", header, got, want)
		}
	}

	if Language(context.Background()) != language.Hebrew {
		t.Fatal("language without middleware should default to Hebrew")
	}
}

func TestRequestLoggerSetsID(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(noContent))

	rec := serve(h, "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id = %q", rec.Header().Get("X-Request-ID"))
	}
}
