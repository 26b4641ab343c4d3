package middleware

import (
	"context"
	"net/http"
	"strings"

	"barbershop/backend/internal/httpjson"
	"barbershop/backend/internal/i18n"
	"barbershop/backend/internal/models"

	"firebase.google.com/go/v4/auth"
)

type ctxKey string

const authUserKey ctxKey = "authUser"

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthUser struct {
	UID         string
	Email       string
	DisplayName string
	Claims      map[string]any
}

// Identity is the domain view of the caller.
func (au *AuthUser) Identity() models.Identity {
	if au == nil {
		return models.Identity{}
	}
	return models.Identity{
		UID:         au.UID,
		DisplayName: au.DisplayName,
		Email:       au.Email,
		Admin:       IsAdmin(au.Claims),
	}
}

func WithAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := Language(r.Context())
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
				httpjson.Error(w, http.StatusUnauthorized, i18n.T(lang, i18n.MsgUnauthorized))
				return
			}
			idToken := strings.TrimSpace(h[len("Bearer "):])

			tok, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				httpjson.Error(w, http.StatusUnauthorized, i18n.T(lang, i18n.MsgUnauthorized))
				return
			}

			au := &AuthUser{
				UID:    tok.UID,
				Claims: tok.Claims,
			}
			if v, ok := tok.Claims["email"].(string); ok {
				au.Email = v
			}
			if v, ok := tok.Claims["name"].(string); ok {
				au.DisplayName = v
			}

			ctx := context.WithValue(r.Context(), authUserKey, au)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetAuthUser(ctx context.Context) (*AuthUser, bool) {
	v := ctx.Value(authUserKey)
	if v == nil {
		return nil, false
	}
	au, ok := v.(*AuthUser)
	return au, ok
}

// RequireAdmin lets through only callers isAdmin accepts.
func RequireAdmin(isAdmin func(models.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			au, ok := GetAuthUser(r.Context())
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, i18n.T(Language(r.Context()), i18n.MsgUnauthorized))
				return
			}
			if !isAdmin(au.Identity()) {
				httpjson.Error(w, http.StatusForbidden, i18n.T(Language(r.Context()), i18n.MsgForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsAdmin checks the custom claims set by cmd/set-admin.
func IsAdmin(claims map[string]any) bool {
	if claims == nil {
		return false
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		return true
	}
	if role, ok := claims["role"].(string); ok && role == "admin" {
		return true
	}
	return false
}
