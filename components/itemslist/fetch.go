package itemslist

import "context"

// Page is one decoded page of a collection.
type Page[T any] struct {
	Items        []T
	TotalCount   int
	CustomParams map[string]any
}

// FetchPage runs a single request for state outside of a controller. Plain lists are
// sorted and paged locally, with the page clamped to the list length.
func FetchPage[T any](ctx context.Context, source ItemsSource[T], state State, params Params) (Page[T], error) {
	if source == nil {
		return Page[T]{}, errMissingSource
	}
	if params == nil {
		params = Params{}
	}
	rc := &RequestContext{Params: params}
	raw, err := source.DoRequest(ctx, state, rc)
	if err != nil {
		return Page[T]{}, err
	}
	results, total := raw.Results, raw.Count
	if source.IsPlainList() {
		total = len(results)
		results = paginatePlain(results, state.Clamp(total))
	}
	items, err := source.ProcessResults(results)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, TotalCount: total, CustomParams: rc.CustomParams()}, nil
}
