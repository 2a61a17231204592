package itemslist

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// paginatePlain sorts a bare list by the state's order field and slices out the
// current page.
func paginatePlain(items []json.RawMessage, state State) []json.RawMessage {
	sorted := sortRaw(items, state.OrderByField, state.OrderByReverse)
	start := (max(state.Page, 1) - 1) * state.ItemsPerPage
	if state.ItemsPerPage < 1 || start >= len(sorted) {
		if state.ItemsPerPage < 1 {
			return sorted
		}
		return []json.RawMessage{}
	}
	end := min(start+state.ItemsPerPage, len(sorted))
	return sorted[start:end]
}

func sortRaw(items []json.RawMessage, field string, reverse bool) []json.RawMessage {
	out := slices.Clone(items)
	if field == "" {
		return out
	}
	keys := make(map[int]any, len(out))
	type indexed struct {
		pos int
		raw json.RawMessage
	}
	list := make([]indexed, len(out))
	for i, raw := range out {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil {
			keys[i] = obj[field]
		}
		list[i] = indexed{pos: i, raw: raw}
	}
	slices.SortStableFunc(list, func(a, b indexed) int {
		c := CompareValues(keys[a.pos], keys[b.pos])
		if reverse {
			return -c
		}
		return c
	})
	for i, entry := range list {
		out[i] = entry.raw
	}
	return out
}

// CompareValues orders two decoded JSON values. Nil sorts first, strings compare
// case-insensitively and mismatched types fall back to their printed form.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
