package apiclient

import (
	"context"
	"sync"
)

// LoginPath is the login screen every dead session is sent back to.
const LoginPath = "/login"

// Navigator moves the admin to another screen.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

type viewKey struct{}

type view struct {
	path string

	mu     sync.Mutex
	target string
}

// WithView records the screen the current request renders. Navigation
// requested while serving it is kept on the same record.
func WithView(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, viewKey{}, &view{path: path})
}

// CurrentView returns the screen recorded by WithView.
func CurrentView(ctx context.Context) string {
	if v, ok := ctx.Value(viewKey{}).(*view); ok {
		return v.path
	}
	return ""
}

// NavigationTarget returns the screen a call asked to move to, if any.
func NavigationTarget(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(viewKey{}).(*view)
	if !ok {
		return "", false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.target, v.target != ""
}

// ViewNavigator records navigation on the request's view. The HTTP layer
// turns the recorded target into a redirect.
type ViewNavigator struct{}

func (ViewNavigator) Navigate(ctx context.Context, path string) {
	v, ok := ctx.Value(viewKey{}).(*view)
	if !ok {
		return
	}
	v.mu.Lock()
	v.target = path
	v.mu.Unlock()
}
