package itemslist

import "testing"

func TestEmptyStateFor(t *testing.T) {
	loadedEmpty := func(mut func(*View[int])) View[int] {
		v := View[int]{IsLoaded: true, IsEmpty: true, Params: Params{}}
		if mut != nil {
			mut(&v)
		}
		return v
	}
	cases := []struct {
		name string
		view View[int]
		want EmptyStateKind
	}{
		{"not loaded", View[int]{IsEmpty: true}, EmptyNone},
		{"has items", View[int]{IsLoaded: true}, EmptyNone},
		{"search wins", loadedEmpty(func(v *View[int]) {
			v.SearchTerm = "sales"
			v.SelectedTags = []string{"x"}
			v.Params = Params{"currentPage": "favorites"}
		}), EmptySearch},
		{"tags", loadedEmpty(func(v *View[int]) { v.SelectedTags = []string{"x"} }), EmptyTags},
		{"favorites", loadedEmpty(func(v *View[int]) { v.Params = Params{"currentPage": "favorites"} }), EmptyFavorites},
		{"archive", loadedEmpty(func(v *View[int]) { v.Params = Params{"currentPage": "archive"} }), EmptyArchive},
		{"mine", loadedEmpty(func(v *View[int]) { v.Params = Params{"currentPage": "my"} }), EmptyMine},
		{"all", loadedEmpty(nil), EmptyCollection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EmptyStateFor(tc.view); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
