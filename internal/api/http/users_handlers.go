package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	auth "github.com/mind-engage/mindengage-learn/internal/auth/middleware"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

// POST /api/users  { "email", "name", "password", "role" }
func CreateUserHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in auth.NewUser
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := users.Create(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// GET /api/users?role=student
func ListUsersHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.Role(strings.TrimSpace(r.URL.Query().Get("role")))
		if role != "" && !role.Valid() {
			writeError(w, r, apperr.Validation("users.list", "unknown role", apperr.FieldError{Field: "role", Error: "must be student or admin"}))
			return
		}
		list, err := users.List(r.Context(), role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/me
func MeHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.Get(r.Context(), principal(r).UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
