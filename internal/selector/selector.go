// Package selector is the searchable store picker used by the import and
// product screens. Searches are debounced; each search starts a new
// generation and cancels the one before it, so a slow response can never
// overwrite a newer one.
package selector

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dxt-admin/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	PageSize        = 50
)

// ErrSuperseded is returned to a search that a newer one replaced.
var ErrSuperseded = errors.New("search superseded by a newer one")

// Lister fetches a page of the store directory.
type Lister interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// View is what the picker shows.
type View struct {
	Search   string                 `json:"search"`
	Page     int                    `json:"page"`
	Options  []domain.StoreListItem `json:"options"`
	HasMore  bool                   `json:"hasMore"`
	Selected *domain.StoreListItem  `json:"selected,omitempty"`
}

type Selector struct {
	debounce time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	search     string
	page       int
	options    []domain.StoreListItem
	hasMore    bool
	selected   *domain.StoreListItem
	lastUsed   time.Time
}

func New(debounce time.Duration, logger *zap.Logger) *Selector {
	return &Selector{
		debounce: debounce,
		logger:   logger,
		now:      time.Now,
		lastUsed: time.Now(),
	}
}

// View returns a copy of the current picker state.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Selector) viewLocked() View {
	v := View{
		Search:  s.search,
		Page:    s.page,
		Options: append([]domain.StoreListItem(nil), s.options...),
		HasMore: s.hasMore,
	}
	if s.selected != nil {
		sel := *s.selected
		v.Selected = &sel
	}
	return v
}

// begin starts a new generation and cancels the previous one.
func (s *Selector) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.lastUsed = s.now()
	return ctx, s.generation
}

func (s *Selector) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Search waits out the debounce window, then loads the first page for term.
// A search replaced by a newer one before it completes returns ErrSuperseded
// and leaves the state alone.
func (s *Selector) Search(ctx context.Context, api Lister, term string) (View, error) {
	term = strings.TrimSpace(term)
	ctx, gen := s.begin(ctx)
	defer s.finish(gen)

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return View{}, s.cancelled(ctx, gen)
		}
	}

	list, err := fetch(ctx, api, 1, term)
	if err != nil {
		if ctx.Err() != nil {
			return View{}, s.cancelled(ctx, gen)
		}
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return View{}, ErrSuperseded
	}
	s.search = term
	s.page = 1
	s.options = list.Stores
	s.hasMore = list.HasMore
	return s.viewLocked(), nil
}

// LoadMore appends the next page while the backend reports more results.
func (s *Selector) LoadMore(ctx context.Context, api Lister) (View, error) {
	s.mu.Lock()
	if !s.hasMore {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}
	term, next := s.search, s.page+1
	s.mu.Unlock()

	ctx, gen := s.begin(ctx)
	defer s.finish(gen)

	list, err := fetch(ctx, api, next, term)
	if err != nil {
		if ctx.Err() != nil {
			return View{}, s.cancelled(ctx, gen)
		}
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return View{}, ErrSuperseded
	}
	s.page = next
	s.options = append(s.options, list.Stores...)
	s.hasMore = list.HasMore
	return s.viewLocked(), nil
}

// cancelled reports why a generation stopped early: replaced by a newer
// search, or the caller went away.
func (s *Selector) cancelled(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	superseded := s.generation != gen
	s.mu.Unlock()
	if superseded {
		s.logger.Debug("Store search superseded", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	return context.Cause(ctx)
}

func (s *Selector) Select(store domain.StoreListItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = &store
	s.lastUsed = s.now()
}

func (s *Selector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.lastUsed = s.now()
}

// Selected returns the chosen store, if any. Reading the selection counts
// as use, so a store picked once survives while its screens are open.
func (s *Selector) Selected() (domain.StoreListItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	if s.selected == nil {
		return domain.StoreListItem{}, false
	}
	return *s.selected, true
}

// Query encodes one selector page request.
func Query(page int, search string) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(PageSize))
	if search != "" {
		q.Set("search", search)
	}
	return q
}

func fetch(ctx context.Context, api Lister, page int, search string) (domain.StoreList, error) {
	var out domain.StoreList
	err := api.Get(ctx, "/admin/stores", Query(page, search), &out)
	return out, err
}

func (s *Selector) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
