package selector

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry keeps one selector per admin session so consecutive searches from
// the same browser share a generation counter.
type Registry struct {
	debounce time.Duration
	idle     time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	selectors map[string]*Selector
}

// NewRegistry drops selectors unused for longer than idle.
func NewRegistry(debounce, idle time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		debounce:  debounce,
		idle:      idle,
		logger:    logger,
		now:       time.Now,
		selectors: make(map[string]*Selector),
	}
}

// For returns the selector of session sid, creating it on first use.
func (r *Registry) For(sid string) *Selector {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)
	s, ok := r.selectors[sid]
	if !ok {
		s = New(r.debounce, r.logger)
		s.now = r.now
		s.lastUsed = now
		r.selectors[sid] = s
	}
	return s
}

func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.selectors, sid)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.selectors)
}

func (r *Registry) pruneLocked(now time.Time) {
	if r.idle <= 0 {
		return
	}
	for sid, s := range r.selectors {
		if now.Sub(s.idleSince()) > r.idle {
			delete(r.selectors, sid)
		}
	}
}
