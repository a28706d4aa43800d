package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/session"

	"go.uber.org/zap"
)

// Auth is the identity provider session of one browser session.
type Auth struct {
	provider *Provider
	scope    *session.Scope

	mu        sync.Mutex
	user      *User
	listeners map[int]func(*User)
	nextID    int
}

// Session restores the provider session persisted in scope, if any.
func (p *Provider) Session(ctx context.Context, scope *session.Scope) *Auth {
	a := &Auth{
		provider:  p,
		scope:     scope,
		listeners: make(map[int]func(*User)),
	}

	var user User
	err := scope.Load(ctx, session.KeyIdentity, &user)
	switch {
	case err == nil && user.RefreshToken != "":
		a.user = &user
	case err != nil && !errors.Is(err, session.ErrNotFound):
		p.logger.Warn("Failed to restore identity session", zap.Error(err))
	}
	return a
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (a *Auth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// OnAuthStateChanged calls fn with the current user right away and again on
// every sign-in or sign-out. The returned func unsubscribes.
func (a *Auth) OnAuthStateChanged(fn func(*User)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	fn(a.CurrentUser())

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) SignInWithCustomToken(ctx context.Context, token string) (*User, error) {
	user, err := a.provider.signInWithCustomToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := a.setUser(ctx, user); err != nil {
		return nil, err
	}
	return a.CurrentUser(), nil
}

// IDToken returns the current ID token, refreshing it when forced or close
// to expiry. It returns apiclient.ErrNoUser when nobody is signed in. A
// refresh the provider rejects ends the session.
func (a *Auth) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	user := a.CurrentUser()
	if user == nil {
		return "", apiclient.ErrNoUser
	}

	if !forceRefresh && a.provider.now().Add(refreshWindow).Before(user.ExpiresAt) {
		return user.IDToken, nil
	}

	fresh, err := a.provider.refresh(ctx, user.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			a.provider.logger.Warn("Identity session rejected, signing out", zap.String("uid", user.UID))
			if signOutErr := a.SignOut(ctx); signOutErr != nil {
				a.provider.logger.Warn("Failed to clear identity session", zap.Error(signOutErr))
			}
		}
		return "", err
	}
	if fresh.UID == "" {
		fresh.UID = user.UID
	}
	if err := a.setUser(ctx, fresh); err != nil {
		return "", err
	}
	return fresh.IDToken, nil
}

// SignOut ends the provider session locally and notifies listeners.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	hadUser := a.user != nil
	a.user = nil
	a.mu.Unlock()

	err := a.scope.Remove(ctx, session.KeyIdentity)
	if hadUser {
		a.notify(nil)
	}
	if err != nil {
		return fmt.Errorf("failed to clear identity session: %w", err)
	}
	return nil
}

func (a *Auth) setUser(ctx context.Context, user *User) error {
	if err := a.scope.Save(ctx, session.KeyIdentity, user); err != nil {
		return fmt.Errorf("failed to persist identity session: %w", err)
	}

	a.mu.Lock()
	changed := a.user == nil || a.user.UID != user.UID
	u := *user
	a.user = &u
	a.mu.Unlock()

	if changed {
		a.notify(a.CurrentUser())
	}
	return nil
}

func (a *Auth) notify(user *User) {
	a.mu.Lock()
	fns := make([]func(*User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
