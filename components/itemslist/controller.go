package itemslist

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var errMissingSource = errors.New("itemslist: items source is required")

// ControllerOptions configures a Controller. Only Source is required.
type ControllerOptions[T any] struct {
	Source       ItemsSource[T]
	Storage      StateStorage
	Defaults     Defaults
	Params       Params
	ErrorHandler ErrorHandler
	Telemetry    Telemetry
	Logger       zerolog.Logger
	// SearchDebounce delays fetches caused by UpdateSearch. Zero picks
	// DefaultSearchDebounce, a negative value fetches immediately.
	SearchDebounce time.Duration
	// OnChange is called with a fresh view after every state or page change.
	OnChange func(View[T])
}

// View is a consistent snapshot of a controller.
type View[T any] struct {
	State
	Params       Params
	PageItems    []T
	TotalCount   int
	IsLoaded     bool
	IsEmpty      bool
	Err          error
	CustomParams map[string]any
}

// Controller is the single source of truth for a filterable, sortable, paginated
// collection view. Mutators update state synchronously and fetch in the background;
// only the response to the most recently issued request is applied.
type Controller[T any] struct {
	opts     ControllerOptions[T]
	debounce *Debouncer
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	state  State
	items  []T
	total  int
	loaded bool
	err    error
	custom map[string]any
	seq    uint64
	closed bool
	// searching is set while a debounced search fetch is scheduled; it holds one
	// count on wg so Wait covers it.
	searching bool
}

// NewController builds a controller with state restored from storage. It does not
// fetch; call Update to load the first page.
func NewController[T any](opts ControllerOptions[T]) (*Controller[T], error) {
	if opts.Source == nil {
		return nil, errMissingSource
	}
	if opts.Storage == nil {
		opts.Storage = NewMemoryStateStorage(opts.Defaults)
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = noopErrorHandler
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.Params == nil {
		opts.Params = Params{}
	}
	delay := opts.SearchDebounce
	switch {
	case delay == 0:
		delay = DefaultSearchDebounce
	case delay < 0:
		delay = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	state := opts.Storage.Load()
	if state.ItemsPerPage < 1 {
		state.ItemsPerPage = DefaultItemsPerPage
	}
	if state.Page < 1 {
		state.Page = DefaultPage
	}
	return &Controller[T]{
		opts:     opts,
		debounce: NewDebouncer(delay),
		ctx:      ctx,
		cancel:   cancel,
		state:    state.Clone(),
	}, nil
}

// View returns a snapshot of the current state and page.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller[T]) viewLocked() View[T] {
	return View[T]{
		State:        c.state.Clone(),
		Params:       c.opts.Params,
		PageItems:    slices.Clone(c.items),
		TotalCount:   c.total,
		IsLoaded:     c.loaded,
		IsEmpty:      c.loaded && c.total == 0,
		Err:          c.err,
		CustomParams: maps.Clone(c.custom),
	}
}

// UpdateSearch sets the search term, resets to the first page and schedules a
// debounced fetch. Repeating the current term is a no-op.
func (c *Controller[T]) UpdateSearch(term string) {
	c.mu.Lock()
	if c.closed || term == c.state.SearchTerm {
		c.mu.Unlock()
		return
	}
	c.state.SearchTerm = term
	c.state.Page = 1
	c.persistLocked()
	if !c.searching {
		c.searching = true
		c.wg.Add(1)
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.emit(view)
	c.debounce.Trigger(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.searching || c.closed {
			return
		}
		c.fetchLocked("search")
	})
}

// UpdatePagination changes the page and/or page size. When the page size changes the
// page is recomputed so the first visible item stays on screen.
func (c *Controller[T]) UpdatePagination(update PaginationUpdate) {
	c.mutate("pagination", func(s State) State {
		s = applyPagination(s, update)
		if c.loaded {
			s = s.Clamp(c.total)
		}
		return s
	})
}

// ToggleSorting flips the direction for the current field or sorts ascending by a new one.
func (c *Controller[T]) ToggleSorting(field string) {
	c.mutate("sorting", func(s State) State {
		return toggleSorting(s, field)
	})
}

// UpdateSelectedTags replaces the tag filter and resets to the first page.
func (c *Controller[T]) UpdateSelectedTags(tags []string) {
	c.mutate("tags", func(s State) State {
		return s.WithTags(tags)
	})
}

// Update re-issues the current query unconditionally.
func (c *Controller[T]) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.fetchLocked("update")
}

// Wait blocks until every fetch issued so far has settled, including a debounced
// search that has not fired yet.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

// Close tears the controller down. Pending debounced fetches are dropped and late
// responses are discarded.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.releaseSearchLocked()
	c.mu.Unlock()
	c.debounce.Stop()
	c.cancel()
}

func (c *Controller[T]) mutate(reason string, fn func(State) State) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = fn(c.state.Clone())
	c.persistLocked()
	c.fetchLocked(reason)
	view := c.viewLocked()
	c.mu.Unlock()
	c.emit(view)
}

func (c *Controller[T]) persistLocked() {
	if err := c.opts.Storage.Save(c.state); err != nil {
		c.opts.Logger.Warn().Err(err).Msg("persist list state")
	}
}

// fetchLocked issues a request for the current state. The caller holds c.mu.
func (c *Controller[T]) fetchLocked(reason string) {
	c.debounce.Cancel()
	c.seq++
	token := c.seq
	state := c.state.Clone()
	c.wg.Add(1)
	// the new fetch supersedes a scheduled search; release it after counting the fetch
	c.releaseSearchLocked()
	go c.run(token, state, reason)
}

func (c *Controller[T]) releaseSearchLocked() {
	if c.searching {
		c.searching = false
		c.wg.Done()
	}
}

func (c *Controller[T]) run(token uint64, state State, reason string) {
	defer c.wg.Done()
	page, err := FetchPage(c.ctx, c.opts.Source, state, c.opts.Params)

	c.mu.Lock()
	if c.closed || token != c.seq {
		c.mu.Unlock()
		c.opts.Telemetry.Record(context.Background(), "itemslist.fetch.discarded", map[string]any{
			"reason": reason,
			"token":  token,
		})
		return
	}
	if err != nil {
		c.err = err
		view := c.viewLocked()
		c.mu.Unlock()
		c.opts.Logger.Debug().Err(err).Str("reason", reason).Msg("list fetch failed")
		c.opts.Telemetry.Record(context.Background(), "itemslist.fetch.error", map[string]any{
			"reason": reason,
			"error":  err.Error(),
		})
		c.opts.ErrorHandler(err)
		c.emit(view)
		return
	}

	c.items = page.Items
	c.total = page.TotalCount
	c.loaded = true
	c.err = nil
	c.custom = page.CustomParams
	if clamped := c.state.Clamp(page.TotalCount); clamped.Page != c.state.Page {
		c.state = clamped
		c.persistLocked()
		if !c.opts.Source.IsPlainList() {
			c.fetchLocked("clamp")
		}
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.opts.Telemetry.Record(context.Background(), "itemslist.fetch", map[string]any{
		"reason": reason,
		"page":   state.Page,
		"total":  page.TotalCount,
	})
	c.emit(view)
}

func (c *Controller[T]) emit(view View[T]) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(view)
	}
}
