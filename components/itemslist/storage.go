package itemslist

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// StateStorage restores the initial list state and persists later changes.
type StateStorage interface {
	Load() State
	Save(state State) error
}

// MemoryStateStorage keeps state in memory only. Lists embedded in dialogs and pickers
// use it so they never touch the shared location.
type MemoryStateStorage struct {
	mu       sync.RWMutex
	defaults Defaults
	state    *State
}

// NewMemoryStateStorage builds an ephemeral storage seeded with defaults.
func NewMemoryStateStorage(defaults Defaults) *MemoryStateStorage {
	return &MemoryStateStorage{defaults: defaults.normalized()}
}

// Load returns the last saved state or the defaults.
func (s *MemoryStateStorage) Load() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return s.defaults.State()
	}
	return s.state.Clone()
}

// Save stores a copy of state.
func (s *MemoryStateStorage) Save(state State) error {
	state = state.Clone()
	s.mu.Lock()
	s.state = &state
	s.mu.Unlock()
	return nil
}

// Location is the query-string holder a URLStateStorage reads and writes.
type Location interface {
	Query() url.Values
	ReplaceQuery(values url.Values)
}

// URLLocation is a Location over a parsed URL.
type URLLocation struct {
	mu  sync.RWMutex
	url *url.URL
}

// ParseLocation parses raw into a Location.
func ParseLocation(raw string) (*URLLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &URLLocation{url: u}, nil
}

// Query returns a copy of the current query values.
func (l *URLLocation) Query() url.Values {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.url.Query()
}

// ReplaceQuery swaps the query string for values.
func (l *URLLocation) ReplaceQuery(values url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url.RawQuery = values.Encode()
}

// String renders the full URL.
func (l *URLLocation) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.url.String()
}

// URLStateStorage syncs list state with URL query parameters. Values equal to the
// defaults are left out so shared links stay short.
type URLStateStorage struct {
	location Location
	defaults Defaults
}

// NewURLStateStorage binds a storage to location.
func NewURLStateStorage(location Location, defaults Defaults) *URLStateStorage {
	return &URLStateStorage{location: location, defaults: defaults.normalized()}
}

// Load reads the state from the location, falling back to defaults per parameter.
func (s *URLStateStorage) Load() State {
	state := s.defaults.State()
	if s.location == nil {
		return state
	}
	return decodeState(s.location.Query(), state)
}

// Save writes state back, preserving query parameters the list does not own.
func (s *URLStateStorage) Save(state State) error {
	if s.location == nil {
		return nil
	}
	values := s.location.Query()
	for _, key := range []string{"page", "page_size", "order", "q", "tags"} {
		values.Del(key)
	}
	for key, list := range encodeState(state, s.defaults) {
		values[key] = list
	}
	s.location.ReplaceQuery(values)
	return nil
}

func encodeState(state State, defaults Defaults) url.Values {
	values := url.Values{}
	if state.Page != defaults.Page {
		values.Set("page", strconv.Itoa(state.Page))
	}
	if state.ItemsPerPage != defaults.ItemsPerPage {
		values.Set("page_size", strconv.Itoa(state.ItemsPerPage))
	}
	if state.OrderByField != defaults.OrderByField || state.OrderByReverse != defaults.OrderByReverse {
		order := state.Order()
		if order == "" {
			// an explicit empty order still has to override a non-empty default
			order = "-"
		}
		values.Set("order", order)
	}
	if state.SearchTerm != "" {
		values.Set("q", state.SearchTerm)
	}
	for _, tag := range normalizeTags(state.SelectedTags) {
		values.Add("tags", tag)
	}
	return values
}

func decodeState(values url.Values, state State) State {
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		state.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil && size > 0 {
		state.ItemsPerPage = size
	}
	if values.Has("order") {
		order := values.Get("order")
		switch {
		case order == "-" || order == "":
			state.OrderByField = ""
			state.OrderByReverse = false
		case strings.HasPrefix(order, "-"):
			state.OrderByField = order[1:]
			state.OrderByReverse = true
		default:
			state.OrderByField = order
			state.OrderByReverse = false
		}
	}
	state.SearchTerm = values.Get("q")
	state.SelectedTags = normalizeTags(values["tags"])
	return state
}
