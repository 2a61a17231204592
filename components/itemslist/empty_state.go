package itemslist

// EmptyStateKind tells a list which empty-state variant to show.
type EmptyStateKind string

const (
	EmptyNone       EmptyStateKind = ""
	EmptySearch     EmptyStateKind = "search"
	EmptyTags       EmptyStateKind = "tags"
	EmptyFavorites  EmptyStateKind = "favorites"
	EmptyArchive    EmptyStateKind = "archive"
	EmptyMine       EmptyStateKind = "my"
	EmptyCollection EmptyStateKind = "default"
)

// EmptyStateFor resolves the empty-state variant of a loaded, empty view. Search takes
// precedence over tag filters, which take precedence over the current page section.
func EmptyStateFor[T any](view View[T]) EmptyStateKind {
	if !view.IsLoaded || !view.IsEmpty {
		return EmptyNone
	}
	if view.SearchTerm != "" {
		return EmptySearch
	}
	if len(view.SelectedTags) > 0 {
		return EmptyTags
	}
	switch view.Params.String("currentPage") {
	case "favorites":
		return EmptyFavorites
	case "archive":
		return EmptyArchive
	case "my":
		return EmptyMine
	default:
		return EmptyCollection
	}
}
