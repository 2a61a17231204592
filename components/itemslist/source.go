package itemslist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
)

var errMissingResource = errors.New("itemslist: no resource for page")

// RawPage is an undecoded page as returned by the backend.
type RawPage struct {
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}

// Params are page-level parameters fixed for the lifetime of a controller, such as the
// current sidebar section ("all", "favorites", "archive").
type Params map[string]any

// String returns the string value stored under key.
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// RequestContext is handed to an ItemsSource on every request. Sources use it to read
// page params and to stash out-of-band response metadata.
type RequestContext struct {
	Params Params

	mu     sync.Mutex
	custom map[string]any
}

// SetCustomParams merges values into the custom params published with the page.
func (c *RequestContext) SetCustomParams(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.custom == nil {
		c.custom = map[string]any{}
	}
	maps.Copy(c.custom, values)
}

// CustomParams returns a copy of the stashed values.
func (c *RequestContext) CustomParams() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.custom)
}

// ItemsSource decides what to request for a list state and how to decode the results.
type ItemsSource[T any] interface {
	DoRequest(ctx context.Context, state State, rc *RequestContext) (RawPage, error)
	ProcessResults(items []json.RawMessage) ([]T, error)
	IsPlainList() bool
}

// Resource fetches one page of a backend collection.
type Resource func(ctx context.Context, req Request) (RawPage, error)

// ItemProcessor decodes a raw item into a domain value.
type ItemProcessor[T any] func(raw json.RawMessage) (T, error)

// DecodeItem is the default ItemProcessor.
func DecodeItem[T any](raw json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("itemslist: decode item: %w", err)
	}
	return item, nil
}

// ResourceItemsSource requests paginated collections that answer with a
// {results, count} envelope.
type ResourceItemsSource[T any] struct {
	// GetResource picks the collection for the page params.
	GetResource func(params Params) Resource
	// GetRequest optionally adds resource specific parameters.
	GetRequest func(req Request, params Params) Request
	// ItemProcessor defaults to DecodeItem.
	ItemProcessor ItemProcessor[T]
}

// DoRequest implements ItemsSource.
func (s *ResourceItemsSource[T]) DoRequest(ctx context.Context, state State, rc *RequestContext) (RawPage, error) {
	if s.GetResource == nil {
		return RawPage{}, errMissingResource
	}
	var params Params
	if rc != nil {
		params = rc.Params
	}
	resource := s.GetResource(params)
	if resource == nil {
		return RawPage{}, fmt.Errorf("%w %q", errMissingResource, params.String("currentPage"))
	}
	req := state.Request()
	if s.GetRequest != nil {
		req = s.GetRequest(req, params)
	}
	return resource(ctx, req)
}

// ProcessResults implements ItemsSource.
func (s *ResourceItemsSource[T]) ProcessResults(items []json.RawMessage) ([]T, error) {
	return processItems(items, s.ItemProcessor)
}

// IsPlainList implements ItemsSource.
func (s *ResourceItemsSource[T]) IsPlainList() bool { return false }

// PlainListSource requests endpoints that return a bare list. The controller sorts and
// pages the list locally.
type PlainListSource[T any] struct {
	Fetch         func(ctx context.Context, state State, rc *RequestContext) ([]json.RawMessage, error)
	ItemProcessor ItemProcessor[T]
}

// DoRequest implements ItemsSource.
func (s *PlainListSource[T]) DoRequest(ctx context.Context, state State, rc *RequestContext) (RawPage, error) {
	if s.Fetch == nil {
		return RawPage{}, errMissingResource
	}
	items, err := s.Fetch(ctx, state, rc)
	if err != nil {
		return RawPage{}, err
	}
	return RawPage{Results: items, Count: len(items)}, nil
}

// ProcessResults implements ItemsSource.
func (s *PlainListSource[T]) ProcessResults(items []json.RawMessage) ([]T, error) {
	return processItems(items, s.ItemProcessor)
}

// IsPlainList implements ItemsSource.
func (s *PlainListSource[T]) IsPlainList() bool { return true }

func processItems[T any](items []json.RawMessage, processor ItemProcessor[T]) ([]T, error) {
	if processor == nil {
		processor = DecodeItem[T]
	}
	out := make([]T, 0, len(items))
	for _, raw := range items {
		item, err := processor(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
