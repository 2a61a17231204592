package redashtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Backend, *redash.Client) {
	t.Helper()
	backend := NewSeededBackend()
	server := httptest.NewServer(NewHandler(backend, HandlerOptions{APIKey: "k"}))
	t.Cleanup(server.Close)
	client, err := redash.NewClient(redash.HTTPConfig{BaseURL: server.URL, APIKey: "k", MaxRetries: -1})
	require.NoError(t, err)
	return backend, client
}

func TestHandlerRejectsMissingKey(t *testing.T) {
	backend := NewSeededBackend()
	server := httptest.NewServer(NewHandler(backend, HandlerOptions{APIKey: "k"}))
	t.Cleanup(server.Close)
	client, err := redash.NewClient(redash.HTTPConfig{BaseURL: server.URL, MaxRetries: -1})
	require.NoError(t, err)
	_, err = client.GetQuery(context.Background(), 10)
	assert.Equal(t, http.StatusUnauthorized, redash.StatusCode(err))
}

func TestHandlerQueryScopes(t *testing.T) {
	_, client := newServer(t)
	source := redash.QueriesSource(client)
	state := itemslist.State{Page: 1, ItemsPerPage: 10, OrderByField: "created_at", OrderByReverse: true}

	counts := map[string]int{}
	for _, scope := range []string{redash.ScopeAll, redash.ScopeMine, redash.ScopeFavorites, redash.ScopeArchive} {
		page, err := source.DoRequest(context.Background(), state, &itemslist.RequestContext{Params: itemslist.Params{"currentPage": scope}})
		require.NoError(t, err, scope)
		counts[scope] = page.Count
	}
	assert.Equal(t, map[string]int{"all": 3, "my": 2, "favorites": 1, "archive": 1}, counts)

	page, err := source.DoRequest(context.Background(), state, &itemslist.RequestContext{Params: itemslist.Params{}})
	require.NoError(t, err)
	items, err := source.ProcessResults(page.Results)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "New Query", items[0].Name)
}

func TestHandlerSearchTagsAndPaging(t *testing.T) {
	_, client := newServer(t)
	source := redash.QueriesSource(client)
	rc := &itemslist.RequestContext{Params: itemslist.Params{}}

	page, err := source.DoRequest(context.Background(), itemslist.State{Page: 1, ItemsPerPage: 10, SearchTerm: "REVENUE"}, rc)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	page, err = source.DoRequest(context.Background(), itemslist.State{Page: 1, ItemsPerPage: 10, SelectedTags: []string{"growth"}}, rc)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	page, err = source.DoRequest(context.Background(), itemslist.State{Page: 2, ItemsPerPage: 2, OrderByField: "name"}, rc)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 1)
}

func TestHandlerSaveQueryVersioning(t *testing.T) {
	backend, client := newServer(t)
	ctx := context.Background()

	out, err := client.SaveQuery(ctx, map[string]any{"id": 10, "version": 1, "name": "Weekly revenue (net)"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, out["version"])

	_, err = client.SaveQuery(ctx, map[string]any{"id": 10, "version": 1, "name": "stale"})
	assert.True(t, redash.IsConflict(err))

	out, err = client.SaveQuery(ctx, map[string]any{"id": 10, "name": "forced"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["version"])

	q, err := backend.Query(10)
	require.NoError(t, err)
	assert.Equal(t, "forced", q.Name)
	assert.Equal(t, "select week, sum(total) from orders group by 1", q.Query)

	_, err = client.SaveQuery(ctx, map[string]any{"id": 999, "version": 1})
	assert.True(t, redash.IsNotFound(err))

	created, err := client.SaveQuery(ctx, map[string]any{"name": "Fresh", "query": "select 3"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, created["version"])
	assert.NotZero(t, created["id"])
}

func TestHandlerArchiveQuery(t *testing.T) {
	backend, client := newServer(t)
	require.NoError(t, client.ArchiveQuery(context.Background(), 10))
	q, err := backend.Query(10)
	require.NoError(t, err)
	assert.True(t, q.IsArchived)
	assert.Nil(t, q.Schedule)
}

func TestHandlerAlerts(t *testing.T) {
	backend, client := newServer(t)
	ctx := context.Background()

	source := redash.AlertsSource(client)
	page, err := source.DoRequest(ctx, itemslist.State{}, &itemslist.RequestContext{})
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)

	require.NoError(t, client.MuteAlert(ctx, 30))
	a, err := client.GetAlert(ctx, 30)
	require.NoError(t, err)
	assert.True(t, a.Options.Muted)
	require.NotNil(t, a.Query)
	assert.Equal(t, 10, a.Query.ID)

	require.NoError(t, client.UnmuteAlert(ctx, 30))
	a, _ = backend.Alert(30)
	assert.False(t, a.Options.Muted)

	created, err := client.SaveAlert(ctx, redash.Alert{Name: "New", QueryID: 11, Options: redash.AlertOptions{Column: "count", Op: ">", Value: 1}})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	require.NoError(t, client.DeleteAlert(ctx, created.ID))
	_, err = client.GetAlert(ctx, created.ID)
	assert.True(t, redash.IsNotFound(err))

	cols, err := client.QueryResultColumns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "week", cols[0].Name)
}

func TestHandlerUsers(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()
	source := redash.UsersSource(client)
	count := func(scope string) int {
		page, err := source.DoRequest(ctx, itemslist.State{Page: 1, ItemsPerPage: 20}, &itemslist.RequestContext{Params: itemslist.Params{"currentPage": scope}})
		require.NoError(t, err)
		return page.Count
	}
	assert.Equal(t, 2, count(redash.ScopeActive))
	assert.Equal(t, 1, count(redash.ScopePending))
	assert.Equal(t, 1, count(redash.ScopeDisabled))

	u, err := client.DisableUser(ctx, 2)
	require.NoError(t, err)
	assert.True(t, u.IsDisabled)
	assert.Equal(t, 2, count(redash.ScopeDisabled))

	u, err = client.EnableUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, u.IsDisabled)

	invited, err := client.CreateUser(ctx, "Ed", "ed@example.com")
	require.NoError(t, err)
	assert.True(t, invited.IsInvitationPending)
	require.NoError(t, client.DeleteUser(ctx, invited.ID))
	assert.Equal(t, http.StatusBadRequest, redash.StatusCode(client.DeleteUser(ctx, 2)))
}

func TestHandlerDashboardsAndSharing(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()
	source := redash.DashboardsSource(client)
	page, err := source.DoRequest(ctx, itemslist.State{Page: 1, ItemsPerPage: 20}, &itemslist.RequestContext{Params: itemslist.Params{"currentPage": redash.ScopeFavorites}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	share, err := client.EnableDashboardSharing(ctx, 20)
	require.NoError(t, err)
	assert.NotEmpty(t, share.PublicURL)
	require.NoError(t, client.DisableDashboardSharing(ctx, 20))
}

func TestHandlerOutdatedAndSnippets(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()
	report, err := client.OutdatedQueries(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Queries, 1)
	assert.False(t, report.UpdatedAt.Time().IsZero())

	page, err := redash.QuerySnippetsSource(client).DoRequest(ctx, itemslist.State{}, &itemslist.RequestContext{})
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
}
