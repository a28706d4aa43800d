package middleware

import (
	"net/http"

	"dxt-admin/internal/apiclient"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures a signed-in admin is behind the request.
// Anyone else is sent to the login screen.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r.Context())
			if !ok || !sess.Auth.IsAuthenticated() {
				logger.Debug("Unauthenticated request sent to login",
					zap.String("path", r.URL.Path),
				)
				if WantsJSON(r) {
					RespondWithErrorDetails(w, http.StatusUnauthorized, "authentication required",
						map[string]interface{}{"redirect": apiclient.LoginPath})
					return
				}
				http.Redirect(w, r, apiclient.LoginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RedirectAuthenticated sends a signed-in admin away from screens meant for
// signed-out visitors, such as the login form.
func RedirectAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, ok := GetSession(r.Context()); ok && sess.Auth.IsAuthenticated() {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
