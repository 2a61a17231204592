package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-redash/components/commands"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/components/queryeditor"
	"github.com/goliatone/go-redash/pkg/redash"
)

var (
	errMissingRouter  = errors.New("gorouter: router is required")
	errNothingToMount = errors.New("gorouter: api or list routes are required")
)

// Config wires go-router with the list queries and editing commands.
type Config[T any] struct {
	Router   router.Router[T]
	API      Executor
	Lists    []ListRoute
	BasePath string
	// PageSize is the default page size of list routes.
	PageSize int
}

// ListRoute mounts one collection. The first scope is the default; a route without
// scopes ignores the scope parameter.
type ListRoute struct {
	Path    string
	Scopes  []string
	OrderBy string
	Reverse bool
	List    ListFunc
}

// ListFunc resolves one page of a collection.
type ListFunc func(ctx context.Context, in commands.ListPageInput) (any, error)

// List adapts a typed page querier to a ListFunc.
func List[T any](q interface {
	Query(ctx context.Context, in commands.ListPageInput) (itemslist.Page[T], error)
}) ListFunc {
	return func(ctx context.Context, in commands.ListPageInput) (any, error) {
		page, err := q.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		if page.Items == nil {
			page.Items = []T{}
		}
		return listResponse[T]{
			Count:        page.TotalCount,
			Page:         in.State.Page,
			PageSize:     in.State.ItemsPerPage,
			Results:      page.Items,
			CustomParams: page.CustomParams,
		}, nil
	}
}

type listResponse[T any] struct {
	Count        int            `json:"count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	Results      []T            `json:"results"`
	CustomParams map[string]any `json:"custom_params,omitempty"`
}

// RedashLists returns the list routes of every collection the client knows about.
func RedashLists(client *redash.Client) []ListRoute {
	return []ListRoute{
		{
			Path:    "/queries",
			Scopes:  []string{redash.ScopeAll, redash.ScopeMine, redash.ScopeFavorites, redash.ScopeArchive},
			OrderBy: "created_at",
			Reverse: true,
			List:    List[redash.Query](commands.NewListPageQuery[redash.Query](redash.QueriesSource(client))),
		},
		{
			Path:    "/queries/outdated",
			OrderBy: "created_at",
			Reverse: true,
			List:    List[redash.Query](commands.NewListPageQuery[redash.Query](redash.OutdatedQueriesSource(client))),
		},
		{
			Path:    "/dashboards",
			Scopes:  []string{redash.ScopeAll, redash.ScopeFavorites},
			OrderBy: "created_at",
			Reverse: true,
			List:    List[redash.Dashboard](commands.NewListPageQuery[redash.Dashboard](redash.DashboardsSource(client))),
		},
		{
			Path:    "/users",
			Scopes:  []string{redash.ScopeActive, redash.ScopePending, redash.ScopeDisabled},
			OrderBy: "created_at",
			Reverse: true,
			List:    List[redash.User](commands.NewListPageQuery[redash.User](redash.UsersSource(client))),
		},
		{
			Path:    "/alerts",
			OrderBy: "created_at",
			Reverse: true,
			List:    List[redash.Alert](commands.NewListPageQuery[redash.Alert](redash.AlertsSource(client))),
		},
		{
			Path:    "/query_snippets",
			OrderBy: "trigger",
			List:    List[redash.QuerySnippet](commands.NewListPageQuery[redash.QuerySnippet](redash.QuerySnippetsSource(client))),
		},
	}
}

// Register mounts list and command routes on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errMissingRouter
	}
	if cfg.API == nil && len(cfg.Lists) == 0 {
		return errNothingToMount
	}
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	group := cfg.Router.Group(base)

	for _, route := range cfg.Lists {
		registerList(group, route, cfg.PageSize)
	}
	if cfg.API != nil {
		registerAPI(group, cfg.API)
	}
	return nil
}

func registerList[T any](r router.Router[T], route ListRoute, pageSize int) {
	r.Get(route.Path, router.WrapHandler(func(ctx router.Context) error {
		in, err := listInput(func(name string) string { return ctx.Query(name) }, route, pageSize)
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		page, err := route.List(ctx.Context(), in)
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, page)
	}))
}

type renamePayload struct {
	Name string `json:"name"`
}

func registerAPI[T any](r router.Router[T], api Executor) {
	r.Post("/queries/:id/rename", router.WrapHandler(func(ctx router.Context) error {
		id, err := idParam(ctx)
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		var payload renamePayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if strings.TrimSpace(payload.Name) == "" {
			return respondError(ctx, http.StatusBadRequest, errors.New("name is required"))
		}
		var renamed redash.Query
		err = api.RenameQuery(ctx.Context(), commands.RenameQueryInput{
			ID:     id,
			Name:   payload.Name,
			Result: func(q redash.Query) { renamed = q },
		})
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, renamed)
	}))

	r.Post("/queries/:id/archive", router.WrapHandler(func(ctx router.Context) error {
		id, err := idParam(ctx)
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		var archived redash.Query
		err = api.ArchiveQuery(ctx.Context(), commands.ArchiveQueryInput{
			ID:     id,
			Result: func(q redash.Query) { archived = q },
		})
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, archived)
	}))

	setMuted := func(muted bool) func(router.Context) error {
		return func(ctx router.Context) error {
			id, err := idParam(ctx)
			if err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			if err := api.SetAlertMuted(ctx.Context(), commands.SetAlertMutedInput{ID: id, Muted: muted}); err != nil {
				return respondError(ctx, statusFor(err), err)
			}
			return ctx.JSON(http.StatusOK, map[string]any{"id": id, "muted": muted})
		}
	}
	r.Post("/alerts/:id/mute", router.WrapHandler(setMuted(true)))
	r.Delete("/alerts/:id/mute", router.WrapHandler(setMuted(false)))
}

// listInput reads list state from query parameters, using the same names as the
// list URLs: page, page_size, order, q and comma separated tags.
func listInput(query func(string) string, route ListRoute, pageSize int) (commands.ListPageInput, error) {
	defaults := itemslist.Defaults{ItemsPerPage: pageSize, OrderByField: route.OrderBy, OrderByReverse: route.Reverse}
	state := defaults.State()

	if raw := query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return commands.ListPageInput{}, errors.New("page must be a positive integer")
		}
		state = state.WithPagination(itemslist.PaginationUpdate{Page: &page})
	}
	if raw := query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return commands.ListPageInput{}, errors.New("page_size must be a positive integer")
		}
		state.ItemsPerPage = size
	}
	if raw := strings.TrimSpace(query("order")); raw != "" {
		state = state.WithOrder(strings.TrimPrefix(raw, "-"), strings.HasPrefix(raw, "-"))
	}
	if q := query("q"); q != "" {
		state.SearchTerm = q
	}
	if raw := query("tags"); raw != "" {
		state.SelectedTags = strings.Split(raw, ",")
		state = state.Clone()
	}

	params := itemslist.Params{}
	if len(route.Scopes) > 0 {
		scope := query("scope")
		if scope == "" {
			scope = route.Scopes[0]
		}
		known := false
		for _, s := range route.Scopes {
			known = known || s == scope
		}
		if !known {
			return commands.ListPageInput{}, errors.New("unknown scope " + strconv.Quote(scope))
		}
		params["currentPage"] = scope
	}
	return commands.ListPageInput{State: state, Params: params}, nil
}

func idParam(ctx router.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return 0, errors.New("a numeric id is required")
	}
	return id, nil
}

func statusFor(err error) int {
	if status := redash.StatusCode(err); status > 0 {
		return status
	}
	if errors.Is(err, queryeditor.ErrArchiveDeclined) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
