package redashtest

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/goliatone/go-redash/components/itemslist"
)

// paginate sorts items by params.Order and slices out the requested page. Items are
// compared through their JSON form so every resource sorts by its wire field names.
func paginate[T any](items []T, params ListParams) (Page, error) {
	params.Page = max(params.Page, 1)
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	field, reverse := strings.TrimPrefix(params.Order, "-"), strings.HasPrefix(params.Order, "-")
	if field == "" {
		field = "id"
	}
	type row struct {
		item T
		keys map[string]any
	}
	rows := make([]row, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return Page{}, err
		}
		var keys map[string]any
		if err := json.Unmarshal(raw, &keys); err != nil {
			return Page{}, err
		}
		rows = append(rows, row{item: item, keys: keys})
	}
	slices.SortStableFunc(rows, func(a, b row) int {
		c := itemslist.CompareValues(a.keys[field], b.keys[field])
		if c == 0 {
			c = itemslist.CompareValues(a.keys["id"], b.keys["id"])
		}
		if reverse {
			return -c
		}
		return c
	})

	start := min((params.Page-1)*params.PageSize, len(rows))
	end := min(start+params.PageSize, len(rows))
	page := Page{Count: len(rows), Page: params.Page, PageSize: params.PageSize, Results: []any{}}
	for i := start; i < end; i++ {
		page.Results = append(page.Results, rows[i].item)
	}
	return page, nil
}
