package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-redash/components/itemslist"
)

// ListPageInput selects one page of a collection.
type ListPageInput struct {
	State  itemslist.State
	Params itemslist.Params
}

// ListPageQuery fetches a single page without keeping a controller around.
type ListPageQuery[T any] struct {
	source itemslist.ItemsSource[T]
}

// NewListPageQuery builds the query.
func NewListPageQuery[T any](source itemslist.ItemsSource[T]) *ListPageQuery[T] {
	return &ListPageQuery[T]{source: source}
}

var _ gocommand.Querier[ListPageInput, itemslist.Page[int]] = (*ListPageQuery[int])(nil)

// Query resolves the page for the input state.
func (q *ListPageQuery[T]) Query(ctx context.Context, in ListPageInput) (itemslist.Page[T], error) {
	return itemslist.FetchPage(ctx, q.source, in.State, in.Params)
}
