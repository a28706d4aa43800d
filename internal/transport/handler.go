// Package transport serves the admin screens and the same-origin store
// proxy. Handlers act through the request's admin session; every backend
// call goes out with that admin's identity.
package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/middleware"

	"go.uber.org/zap"
)

// errNoSession is returned when a route is mounted outside SessionMiddleware.
var errNoSession = errors.New("request has no admin session")

// errSubmitting means the same form of this session is still being sent.
var errSubmitting = errors.New("form is already being submitted")

// submitLockTTL bounds a create lock whose request never finishes.
const submitLockTTL = 2 * time.Minute

// base is embedded by every screen handler.
type base struct {
	renderer *Renderer
	logger   *zap.Logger
}

func (b base) session(w http.ResponseWriter, r *http.Request) (*middleware.Session, bool) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		b.logger.Error("Handler reached without session", zap.String("path", r.URL.Path), zap.Error(errNoSession))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// page assembles the common page data, consuming pending notifications.
func (b base) page(r *http.Request, sess *middleware.Session, title, section string, data any) Page {
	p := Page{Title: title, Section: section, Data: data}
	if sess == nil {
		return p
	}
	p.Admin = sess.Auth.Admin()
	flashes, err := sess.Scope.PopFlashes(r.Context())
	if err != nil {
		b.logger.Warn("Failed to read notifications", zap.Error(err))
	}
	p.Flashes = flashes
	return p
}

func (b base) render(w http.ResponseWriter, r *http.Request, sess *middleware.Session, status int, name, title, section string, data any) {
	b.renderer.Render(w, status, name, b.page(r, sess, title, section, data))
}

// claim holds key for the session while a non-repeatable create runs, so a
// double submit sends one request. The returned func releases it.
func (b base) claim(r *http.Request, sess *middleware.Session, key string) (func(), error) {
	ok, err := sess.Scope.Lock(r.Context(), key, submitLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errSubmitting
	}
	return func() {
		if err := sess.Scope.Unlock(context.WithoutCancel(r.Context()), key); err != nil {
			b.logger.Warn("Failed to release submit lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// claimFailure maps a failed claim to the status and inline message shown.
func (b base) claimFailure(err error) (int, string) {
	if errors.Is(err, errSubmitting) {
		return http.StatusConflict, "This form is already being submitted. Please wait for it to finish."
	}
	b.logger.Error("Failed to claim submit lock", zap.Error(err))
	return http.StatusServiceUnavailable, "Something went wrong. Please try again."
}

// seeOther finishes a form post by sending the browser to target.
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// validationMessage returns the inline text of a form problem.
func validationMessage(err error, fallback string) string {
	var v *domain.ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	return middleware.FirstValidationMessage(err, fallback)
}

func apiNotFound(err error) bool {
	apiErr, ok := apiclient.AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}
