package transport

import (
	"errors"
	"net/http"
	"strings"

	"dxt-admin/internal/auth"
	"dxt-admin/internal/csvimport"
	"dxt-admin/internal/middleware"
	"dxt-admin/internal/selector"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginForm represents the submitted login form
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginView struct {
	Email string
	Error string
}

type AuthHandler struct {
	base
	selectors *selector.Registry
	stash     *csvimport.Stash
}

func NewAuthHandler(renderer *Renderer, selectors *selector.Registry, stash *csvimport.Stash, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:      base{renderer: renderer, logger: logger},
		selectors: selectors,
		stash:     stash,
	}
}

// RegisterRoutes registers the login screen. rateLimit throttles login
// attempts.
func (h *AuthHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Get("/", h.Home)
	r.With(middleware.RedirectAuthenticated("/dashboard")).Get("/login", h.LoginPage)
	r.With(rateLimit).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/logout", h.Logout)
}

// Home sends the admin to the dashboard or the login screen.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Auth.IsAuthenticated() {
		seeOther(w, r, "/dashboard")
		return
	}
	seeOther(w, r, "/login")
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.render(w, r, sess, http.StatusOK, "login", "Sign in", "", loginView{})
}

// Login handles admin authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, r, sess, http.StatusBadRequest, "login", "Sign in", "", loginView{Error: "Invalid form submission"})
		return
	}

	form := LoginForm{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	if err := middleware.ValidateRequest(form); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		view := loginView{Email: form.Email, Error: middleware.FirstValidationMessage(err, "Please enter your email and password")}
		h.render(w, r, sess, http.StatusUnprocessableEntity, "login", "Sign in", "", view)
		return
	}

	if _, err := sess.Auth.Login(r.Context(), form.Email, form.Password); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrBusy) {
			status = http.StatusConflict
		}
		view := loginView{Email: form.Email, Error: auth.LoginMessage(err)}
		h.render(w, r, sess, status, "login", "Sign in", "", view)
		return
	}

	seeOther(w, r, "/dashboard")
}

// Logout ends the admin session and returns to the login screen.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Auth.Logout(r.Context())
	h.selectors.Remove(sess.Scope.ID())
	if err := h.stash.Clear(r.Context(), sess.Scope.ID()); err != nil {
		h.logger.Warn("Failed to clear import state", zap.Error(err))
	}
	seeOther(w, r, "/login")
}
