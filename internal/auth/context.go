// Package auth is the signed-in admin state of one browser session. A
// Context is built per request with an explicit lifecycle: Init subscribes to
// the identity provider, Teardown unsubscribes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/identity"
	"dxt-admin/internal/session"

	"go.uber.org/zap"
)

var (
	ErrBusy        = errors.New("a login is already in progress")
	ErrLoginFailed = errors.New("login failed")
)

// LoginError is a login the backend answered without success.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Message)
}

func (e *LoginError) Is(target error) bool {
	return target == ErrLoginFailed
}

// loginLockTTL bounds the session's login lock when a login never finishes.
const loginLockTTL = 2 * time.Minute

type State int

const (
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// API is the part of the backend client the auth context drives.
type API interface {
	PostJSON(ctx context.Context, path string, in, out any) error
	SetDefaultAuthorization(token string)
	ClearDefaultAuthorization()
}

// Identity is the provider session the auth context subscribes to.
type Identity interface {
	OnAuthStateChanged(fn func(*identity.User)) func()
	SignInWithCustomToken(ctx context.Context, token string) (*identity.User, error)
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
	SignOut(ctx context.Context) error
}

type Context struct {
	api      API
	identity Identity
	scope    *session.Scope
	logger   *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	state       State
	admin       *domain.Admin
	unsubscribe func()
}

func New(api API, id Identity, scope *session.Scope, logger *zap.Logger) *Context {
	return &Context{
		api:      api,
		identity: id,
		scope:    scope,
		logger:   logger,
		state:    Unknown,
	}
}

// Init subscribes to provider state changes. The provider reports the
// current session right away, so the state is settled when Init returns.
func (c *Context) Init(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	c.mu.Unlock()

	unsubscribe := c.identity.OnAuthStateChanged(c.onStateChanged)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

func (c *Context) Teardown() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Context) onStateChanged(user *identity.User) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if user == nil {
		c.clear(ctx)
		c.api.ClearDefaultAuthorization()
		return
	}

	var admin domain.Admin
	if err := c.scope.Load(ctx, session.KeyAdminData, &admin); err != nil || admin.ID == "" {
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			c.logger.Warn("Failed to hydrate admin from session", zap.Error(err))
		}
		c.clear(ctx)
		return
	}

	c.mu.Lock()
	c.admin = &admin
	c.state = Authenticated
	c.mu.Unlock()
}

// Login signs the admin in against the backend and the identity provider.
// Any failing step clears persisted state and returns the original error.
// A login already running for the same session returns ErrBusy.
func (c *Context) Login(ctx context.Context, email, password string) (*domain.Admin, error) {
	ok, err := c.scope.Lock(ctx, session.KeyLoginLock, loginLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to start login: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer func() {
		if err := c.scope.Unlock(context.WithoutCancel(ctx), session.KeyLoginLock); err != nil {
			c.logger.Warn("Failed to release login lock", zap.Error(err))
		}
	}()

	admin, err := c.login(ctx, email, password)
	if err != nil {
		c.logger.Warn("Login failed", zap.String("email", email), zap.Error(err))
		c.clear(ctx)
		return nil, err
	}

	c.logger.Info("Admin logged in", zap.String("admin_id", admin.ID), zap.String("role", admin.Role))
	return admin, nil
}

func (c *Context) login(ctx context.Context, email, password string) (*domain.Admin, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Email: email, Password: password, AccountType: domain.AccountTypeAdmin}
	if err := c.api.PostJSON(ctx, "/admin/login", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed"
		}
		return nil, &LoginError{Message: msg}
	}
	if resp.AdminData == nil {
		return nil, &LoginError{Message: "Admin data not found in response"}
	}

	if err := c.scope.Save(ctx, session.KeyAdminData, resp.AdminData); err != nil {
		return nil, err
	}

	if _, err := c.identity.SignInWithCustomToken(ctx, resp.CustomFirebaseToken); err != nil {
		return nil, err
	}

	token, err := c.identity.IDToken(ctx, false)
	if err != nil {
		if signOutErr := c.identity.SignOut(ctx); signOutErr != nil {
			c.logger.Warn("Failed to end provider session after login failure", zap.Error(signOutErr))
		}
		return nil, err
	}
	c.api.SetDefaultAuthorization(token)

	admin := *resp.AdminData
	c.mu.Lock()
	c.admin = &admin
	c.state = Authenticated
	c.mu.Unlock()
	return &admin, nil
}

// Logout ends the session locally. Failures are logged, never returned.
func (c *Context) Logout(ctx context.Context) {
	if err := c.identity.SignOut(ctx); err != nil {
		c.logger.Warn("Failed to sign out of identity provider", zap.Error(err))
	}
	c.clear(ctx)
	c.api.ClearDefaultAuthorization()
}

func (c *Context) clear(ctx context.Context) {
	if err := c.scope.Remove(ctx, session.KeyAdminData); err != nil {
		c.logger.Warn("Failed to clear admin session", zap.Error(err))
	}
	c.mu.Lock()
	c.admin = nil
	c.state = Unauthenticated
	c.mu.Unlock()
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Admin returns a copy of the signed-in admin, or nil.
func (c *Context) Admin() *domain.Admin {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.admin == nil {
		return nil
	}
	a := *c.admin
	return &a
}

func (c *Context) IsAuthenticated() bool {
	return c.State() == Authenticated
}

func (c *Context) IsLoading() bool {
	return c.State() == Unknown
}

// LoginMessage is the text shown on the login screen for err.
func LoginMessage(err error) string {
	if errors.Is(err, ErrBusy) {
		return "A login is already in progress"
	}
	var loginErr *LoginError
	if errors.As(err, &loginErr) {
		return loginErr.Message
	}
	return apiclient.MessageOr(err, "Login failed. Please try again.")
}
