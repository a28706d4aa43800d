package stores

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the number of stores per directory page.
const PageSize = 20

// maxPageLinks caps the numbered page links under the table.
const maxPageLinks = 5

// ListState is the directory screen state. Search is the applied term;
// SearchInput is what the admin is typing.
type ListState struct {
	Page        int
	Search      string
	SearchInput string
}

func NewListState() ListState {
	return ListState{Page: 1}
}

// ListStateFromQuery restores the state from the page URL.
func ListStateFromQuery(q url.Values) ListState {
	s := NewListState()
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		s.Page = p
	}
	s.Search = strings.TrimSpace(q.Get("search"))
	s.SearchInput = s.Search
	return s
}

// Query is the page URL query for the state.
func (s ListState) Query() url.Values {
	q := url.Values{}
	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	if s.Search != "" {
		q.Set("search", s.Search)
	}
	return q
}

// SubmitSearch applies the typed term and goes back to the first page.
func (s ListState) SubmitSearch(input string) ListState {
	s.SearchInput = input
	s.Search = strings.TrimSpace(input)
	s.Page = 1
	return s
}

// ClearSearch drops the term and shows the unfiltered first page.
func (s ListState) ClearSearch() ListState {
	s.SearchInput = ""
	s.Search = ""
	s.Page = 1
	return s
}

func (s ListState) GoTo(page int) ListState {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// EmptyMessage is the copy shown when a page has no stores. A search gets a
// "no matches" message, an empty platform gets a "no stores yet" one.
func (s ListState) EmptyMessage() (title, body string) {
	if s.Search != "" {
		return "No stores found", fmt.Sprintf("No stores match \"%s\". Try a different search term.", s.Search)
	}
	return "No stores yet", "Get started by creating your first store."
}

// PageLinks returns the numbered page links for total results.
func PageLinks(total, limit int) []int {
	if limit <= 0 || total <= 0 {
		return nil
	}
	pages := (total + limit - 1) / limit
	if pages > maxPageLinks {
		pages = maxPageLinks
	}
	links := make([]int, pages)
	for i := range links {
		links[i] = i + 1
	}
	return links
}
