package itemslist

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPage         = 1
	DefaultItemsPerPage = 20
)

// State is the query state of a list view: pagination, sorting, search and tag filters.
type State struct {
	Page           int
	ItemsPerPage   int
	OrderByField   string
	OrderByReverse bool
	SearchTerm     string
	SelectedTags   []string
}

// Defaults are the values a storage falls back to when nothing is persisted.
type Defaults struct {
	Page           int
	ItemsPerPage   int
	OrderByField   string
	OrderByReverse bool
}

func (d Defaults) normalized() Defaults {
	if d.Page < 1 {
		d.Page = DefaultPage
	}
	if d.ItemsPerPage < 1 {
		d.ItemsPerPage = DefaultItemsPerPage
	}
	return d
}

// State returns the initial list state described by the defaults.
func (d Defaults) State() State {
	d = d.normalized()
	return State{
		Page:           d.Page,
		ItemsPerPage:   d.ItemsPerPage,
		OrderByField:   d.OrderByField,
		OrderByReverse: d.OrderByReverse,
		SelectedTags:   []string{},
	}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.SelectedTags = normalizeTags(s.SelectedTags)
	return out
}

// Equal compares states field by field; tags compare as sets.
func (s State) Equal(other State) bool {
	return s.Page == other.Page &&
		s.ItemsPerPage == other.ItemsPerPage &&
		s.OrderByField == other.OrderByField &&
		s.OrderByReverse == other.OrderByReverse &&
		s.SearchTerm == other.SearchTerm &&
		slices.Equal(normalizeTags(s.SelectedTags), normalizeTags(other.SelectedTags))
}

// PageCount returns the number of pages needed for total items, never less than one.
func (s State) PageCount(total int) int {
	if s.ItemsPerPage < 1 || total <= 0 {
		return 1
	}
	return (total + s.ItemsPerPage - 1) / s.ItemsPerPage
}

// Clamp keeps Page within [1, PageCount(total)].
func (s State) Clamp(total int) State {
	if s.Page < 1 {
		s.Page = 1
	}
	if last := s.PageCount(total); s.Page > last {
		s.Page = last
	}
	return s
}

// Order renders the sort parameter, prefixed with "-" when reversed.
func (s State) Order() string {
	if s.OrderByField == "" {
		return ""
	}
	if s.OrderByReverse {
		return "-" + s.OrderByField
	}
	return s.OrderByField
}

// Request translates the state into backend request parameters.
func (s State) Request() Request {
	return Request{
		Page:     s.Page,
		PageSize: s.ItemsPerPage,
		Order:    s.Order(),
		Q:        s.SearchTerm,
		Tags:     normalizeTags(s.SelectedTags),
	}
}

// Request carries the standard list parameters plus resource specific extras.
type Request struct {
	Page     int
	PageSize int
	Order    string
	Q        string
	Tags     []string
	Extra    map[string]string
}

// Set records an extra parameter and returns the request for chaining.
func (r Request) Set(key, value string) Request {
	extra := make(map[string]string, len(r.Extra)+1)
	for k, v := range r.Extra {
		extra[k] = v
	}
	extra[key] = value
	r.Extra = extra
	return r
}

// Values encodes the request as URL query values.
func (r Request) Values() url.Values {
	values := url.Values{}
	if r.Page > 0 {
		values.Set("page", strconv.Itoa(r.Page))
	}
	if r.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(r.PageSize))
	}
	if r.Order != "" {
		values.Set("order", r.Order)
	}
	if r.Q != "" {
		values.Set("q", r.Q)
	}
	for _, tag := range r.Tags {
		values.Add("tags", tag)
	}
	for k, v := range r.Extra {
		values.Set(k, v)
	}
	return values
}

// PaginationUpdate changes one or both pagination fields. Nil fields are left as is.
type PaginationUpdate struct {
	Page         *int
	ItemsPerPage *int
}

// applyPagination updates the state keeping the first visible item on screen when the
// page size changes.
func applyPagination(s State, update PaginationUpdate) State {
	if update.ItemsPerPage != nil && *update.ItemsPerPage > 0 && *update.ItemsPerPage != s.ItemsPerPage {
		first := (max(s.Page, 1) - 1) * s.ItemsPerPage
		s.ItemsPerPage = *update.ItemsPerPage
		s.Page = first/s.ItemsPerPage + 1
	}
	if update.Page != nil {
		s.Page = *update.Page
	}
	if s.Page < 1 {
		s.Page = 1
	}
	return s
}

// WithPagination returns a copy of s with update applied.
func (s State) WithPagination(update PaginationUpdate) State {
	return applyPagination(s.Clone(), update)
}

// WithSearch sets the search term and returns to the first page.
func (s State) WithSearch(term string) State {
	out := s.Clone()
	if term != s.SearchTerm {
		out.SearchTerm = term
		out.Page = 1
	}
	return out
}

// WithTags replaces the tag filter and returns to the first page.
func (s State) WithTags(tags []string) State {
	out := s.Clone()
	out.SelectedTags = normalizeTags(tags)
	out.Page = 1
	return out
}

// WithOrder sorts by field in the given direction. An empty field clears the order.
func (s State) WithOrder(field string, reverse bool) State {
	out := s.Clone()
	out.OrderByField = field
	out.OrderByReverse = field != "" && reverse
	return out
}

// toggleSorting flips the direction of the current field or sorts ascending by a new
// one. An empty field clears the order, which has no direction.
func toggleSorting(s State, field string) State {
	if field == "" {
		s.OrderByField = ""
		s.OrderByReverse = false
		return s
	}
	if field == s.OrderByField {
		s.OrderByReverse = !s.OrderByReverse
		return s
	}
	s.OrderByField = field
	s.OrderByReverse = false
	return s
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
