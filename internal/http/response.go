package http

import (
	"net/http"

	"barbershop/backend/internal/httpjson"
	"barbershop/backend/internal/i18n"
	"barbershop/backend/internal/middleware"
)

type APIError struct {
	Error   string `json:"error"`
	SignOut bool   `json:"signOut,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	httpjson.Write(w, status, v)
}

// Fail writes key in the request's language.
func Fail(w http.ResponseWriter, r *http.Request, status int, key i18n.Key, args ...any) {
	WriteJSON(w, status, APIError{Error: i18n.T(middleware.Language(r.Context()), key, args...)})
}

// signOut tells the client its session was revoked.
func signOut(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusServiceUnavailable, APIError{
		Error:   i18n.T(middleware.Language(r.Context()), i18n.MsgSetupFailed),
		SignOut: true,
	})
}
