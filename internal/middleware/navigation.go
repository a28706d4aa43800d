package middleware

import (
	"net/http"

	"dxt-admin/internal/apiclient"

	"go.uber.org/zap"
)

// NavigationMiddleware turns a navigation recorded while serving the request,
// such as the backend rejecting the admin's token, into a redirect. The
// handler's own response is discarded once a target is recorded, and the
// dead session is signed out so the login screen does not bounce back.
func NavigationMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nw := &navigationWriter{ResponseWriter: w, r: r, logger: logger}
			next.ServeHTTP(nw, r)
			nw.decide()
		})
	}
}

type navigationWriter struct {
	http.ResponseWriter
	r      *http.Request
	logger *zap.Logger

	decided    bool
	redirected bool
}

func (w *navigationWriter) WriteHeader(code int) {
	if w.decide() {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *navigationWriter) Write(b []byte) (int, error) {
	if w.decide() {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *navigationWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok && !w.redirected {
		f.Flush()
	}
}

// decide runs once, on the first write or when the handler returns.
func (w *navigationWriter) decide() bool {
	if w.decided {
		return w.redirected
	}
	w.decided = true

	target, ok := apiclient.NavigationTarget(w.r.Context())
	if !ok {
		return false
	}
	w.redirected = true

	ctx := w.r.Context()
	if sess, ok := GetSession(ctx); ok {
		sess.Auth.Logout(ctx)
	}
	w.logger.Warn("Backend rejected the session, redirecting",
		zap.String("path", w.r.URL.Path),
		zap.String("target", target),
	)

	h := w.ResponseWriter.Header()
	h.Del("Content-Length")
	if WantsJSON(w.r) {
		RespondWithErrorDetails(w.ResponseWriter, http.StatusUnauthorized, "session expired",
			map[string]interface{}{"redirect": target})
		return true
	}
	h.Del("Content-Type")
	h.Set("Location", target)
	w.ResponseWriter.WriteHeader(http.StatusSeeOther)
	return true
}
