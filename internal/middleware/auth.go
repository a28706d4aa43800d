package middleware

import (
	"context"
	"net/http"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/auth"
	"dxt-admin/internal/identity"
	"dxt-admin/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const SessionKey contextKey = "admin_session"

// Session is what a handler needs to act for the browser behind a request.
// It is also the notifier of mutations: outcomes become flash messages shown
// on the next rendered page.
type Session struct {
	Scope  *session.Scope
	Client *apiclient.Client
	Auth   *auth.Context
	logger *zap.Logger
}

func NewSession(scope *session.Scope, client *apiclient.Client, ac *auth.Context, logger *zap.Logger) *Session {
	return &Session{Scope: scope, Client: client, Auth: ac, logger: logger}
}

func (s *Session) Success(ctx context.Context, message string) {
	s.flash(ctx, session.FlashSuccess, message)
}

func (s *Session) Failure(ctx context.Context, message string) {
	s.flash(ctx, session.FlashError, message)
}

func (s *Session) flash(ctx context.Context, kind session.FlashKind, message string) {
	if err := s.Scope.AddFlash(ctx, kind, message); err != nil && s.logger != nil {
		s.logger.Warn("Failed to queue notification", zap.Error(err))
	}
}

// IdentityProvider restores the identity provider session of a browser.
type IdentityProvider interface {
	Session(ctx context.Context, scope *session.Scope) *identity.Auth
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// SessionMiddleware resolves the session cookie and builds the request's auth
// context. The context is initialised before the handler runs and torn down
// after it returns.
func SessionMiddleware(store session.Store, provider IdentityProvider, api *apiclient.Client, cfg SessionConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := sessionID(r, cfg.CookieName)
			if sid == "" {
				sid = session.NewID()
				logger.Debug("Starting new session", zap.String("path", r.URL.Path))
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := apiclient.WithView(r.Context(), r.URL.Path)
			scope := session.NewScope(store, sid, cfg.TTL)
			id := provider.Session(ctx, scope)
			client := api.WithTokenSource(id)

			ac := auth.New(client, id, scope, logger)
			ac.Init(ctx)
			defer ac.Teardown()

			ctx = context.WithValue(ctx, SessionKey, NewSession(scope, client, ac, logger))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// GetSession extracts the admin session from request context
func GetSession(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(SessionKey).(*Session)
	return s, ok
}
