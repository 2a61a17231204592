package redash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/goliatone/go-redash/components/itemslist"
)

// Page scopes used as the "currentPage" list param.
const (
	ScopeAll       = "all"
	ScopeMine      = "my"
	ScopeFavorites = "favorites"
	ScopeArchive   = "archive"
	ScopeActive    = "active"
	ScopePending   = "pending"
	ScopeDisabled  = "disabled"
)

var queryScopes = map[string]string{
	ScopeAll:       "api/queries",
	ScopeMine:      "api/queries/my",
	ScopeFavorites: "api/queries/favorites",
	ScopeArchive:   "api/queries/archive",
}

var dashboardScopes = map[string]string{
	ScopeAll:       "api/dashboards",
	ScopeFavorites: "api/dashboards/favorites",
}

// Resource returns a paginated list resource for path.
func (c *Client) Resource(path string) itemslist.Resource {
	return func(ctx context.Context, req itemslist.Request) (itemslist.RawPage, error) {
		var page itemslist.RawPage
		err := c.do(ctx, http.MethodGet, path, req.Values(), nil, &page)
		return page, err
	}
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func scopedResource(c *Client, scopes map[string]string) func(itemslist.Params) itemslist.Resource {
	return func(params itemslist.Params) itemslist.Resource {
		scope := params.String("currentPage")
		if scope == "" {
			scope = ScopeAll
		}
		path, ok := scopes[scope]
		if !ok {
			return nil
		}
		return c.Resource(path)
	}
}

// QueriesSource lists queries for the all, my, favorites and archive scopes.
func QueriesSource(c *Client) *itemslist.ResourceItemsSource[Query] {
	return &itemslist.ResourceItemsSource[Query]{GetResource: scopedResource(c, queryScopes)}
}

// DashboardsSource lists dashboards for the all and favorites scopes.
func DashboardsSource(c *Client) *itemslist.ResourceItemsSource[Dashboard] {
	return &itemslist.ResourceItemsSource[Dashboard]{GetResource: scopedResource(c, dashboardScopes)}
}

// UsersSource lists users. The active, pending and disabled scopes all hit the same
// endpoint and differ by filter parameters.
func UsersSource(c *Client) *itemslist.ResourceItemsSource[User] {
	return &itemslist.ResourceItemsSource[User]{
		GetResource: func(itemslist.Params) itemslist.Resource {
			return c.Resource("api/users")
		},
		GetRequest: func(req itemslist.Request, params itemslist.Params) itemslist.Request {
			switch params.String("currentPage") {
			case ScopePending:
				return req.Set("pending", "true")
			case ScopeDisabled:
				return req.Set("disabled", "true")
			default:
				return req.Set("pending", "false")
			}
		},
	}
}

// AlertsSource lists alerts. The endpoint returns every alert at once.
func AlertsSource(c *Client) *itemslist.PlainListSource[Alert] {
	return &itemslist.PlainListSource[Alert]{
		Fetch: func(ctx context.Context, _ itemslist.State, _ *itemslist.RequestContext) ([]json.RawMessage, error) {
			return c.list(ctx, "api/alerts", nil)
		},
	}
}

// QuerySnippetsSource lists query snippets.
func QuerySnippetsSource(c *Client) *itemslist.PlainListSource[QuerySnippet] {
	return &itemslist.PlainListSource[QuerySnippet]{
		Fetch: func(ctx context.Context, _ itemslist.State, _ *itemslist.RequestContext) ([]json.RawMessage, error) {
			return c.list(ctx, "api/query_snippets", nil)
		},
	}
}

// LastUpdatedAtParam is the custom param carrying the report time of OutdatedQueriesSource.
const LastUpdatedAtParam = "lastUpdatedAt"

// OutdatedQueriesSource lists stale queries and publishes the report time as the
// lastUpdatedAt custom param.
func OutdatedQueriesSource(c *Client) *itemslist.PlainListSource[Query] {
	return &itemslist.PlainListSource[Query]{
		Fetch: func(ctx context.Context, _ itemslist.State, rc *itemslist.RequestContext) ([]json.RawMessage, error) {
			report, err := c.OutdatedQueries(ctx)
			if err != nil {
				return nil, err
			}
			if rc != nil {
				rc.SetCustomParams(map[string]any{LastUpdatedAtParam: float64(report.UpdatedAt)})
			}
			return report.Queries, nil
		},
	}
}
