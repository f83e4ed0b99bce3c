package middleware

import (
	"net/http"
	"net/url"

	"github.com/shindakun/loginform/internal/auth"
)

// RequireAuth is a middleware that requires a signed-in session.
// Anonymous requests are redirected to the login form with the requested
// path as the redirect target.
func RequireAuth(sessionManager *auth.SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessionManager.GetSession(r)
			if err != nil || session == nil {
				target := "/auth/login?next=" + url.QueryEscape(r.URL.Path)
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}

			// Session is valid, add to context and continue
			ctx := auth.SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
