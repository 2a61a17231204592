package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/components/queryeditor"
	"github.com/goliatone/go-redash/pkg/redashtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type harness struct {
	backend *redashtest.Backend
	url     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := redashtest.NewSeededBackend()
	server := httptest.NewServer(redashtest.NewHandler(backend, redashtest.HandlerOptions{APIKey: "secret"}))
	t.Cleanup(server.Close)
	return &harness{backend: backend, url: server.URL}
}

// execute runs the CLI against the harness backend with stdin as the prompt input.
func (h *harness) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var root cli
	parser, err := kong.New(&root, kong.Name("redashctl"), kong.Exit(func(code int) {
		t.Fatalf("unexpected exit %d", code)
	}))
	require.NoError(t, err)
	args = append([]string{"--base-url", h.url, "--api-key", "secret", "--env-file", ""}, args...)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	err = run(context.Background(), kctx, &root.Globals, streams{out: &out, err: &errOut, in: strings.NewReader(stdin)})
	return out.String(), errOut.String(), err
}

func TestQueriesListTable(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "queries", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekly revenue")
	assert.Contains(t, out, "draft")
	assert.Contains(t, out, "page 1, 3 total")
	assert.NotContains(t, out, "Legacy churn")
}

func TestQueriesListJSONWithScope(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "-o", "json", "queries", "list", "--scope", "favorites")
	require.NoError(t, err)

	var got struct {
		Count int `json:"count"`
		Items []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 10, got.Items[0].ID)
}

func TestQueriesListOrderAcceptsCamelCase(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "-o", "yaml", "queries", "list", "--order", "createdAt", "--page-size", "1")
	require.NoError(t, err)

	var got struct {
		Count int              `yaml:"count"`
		Items []map[string]any `yaml:"items"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Count)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Weekly revenue", got.Items[0]["name"])
}

func TestQueriesListEmptySearch(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "queries", "list", "-q", "no such query")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, we couldn't find anything.\n", out)
}

func TestQueriesOutdated(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "queries", "outdated")
	require.NoError(t, err)
	assert.Contains(t, out, "Signups by channel")
	assert.Contains(t, out, "report updated 2024-03-01T21:00:00Z")
}

func TestQueriesRename(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "queries", "rename", "13", "Churn by cohort")
	require.NoError(t, err)
	assert.Equal(t, "query 13 renamed to \"Churn by cohort\"\n", out)

	q, err := h.backend.Query(13)
	require.NoError(t, err)
	assert.Equal(t, "Churn by cohort", q.Name)
	assert.True(t, q.IsDraft)
}

func TestQueriesArchiveAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	_, errOut, err := h.execute(t, "n\n", "queries", "archive", "10")
	assert.ErrorIs(t, err, queryeditor.ErrArchiveDeclined)
	assert.Contains(t, errOut, queryeditor.PromptArchive)
	q, _ := h.backend.Query(10)
	assert.False(t, q.IsArchived)

	out, _, err := h.execute(t, "y\n", "queries", "archive", "10")
	require.NoError(t, err)
	assert.Equal(t, "query 10 archived\n", out)
	q, _ = h.backend.Query(10)
	assert.True(t, q.IsArchived)
}

func TestQueriesArchiveYesFlag(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.execute(t, "", "-y", "queries", "archive", "11")
	require.NoError(t, err)
	q, _ := h.backend.Query(11)
	assert.True(t, q.IsArchived)
}

func TestUsersListScopes(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "users", "list", "--scope", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Cy Invited")
	assert.NotContains(t, out, "Ada Admin")

	out, _, err = h.execute(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Admin")
	assert.NotContains(t, out, "Cy Invited")
}

func TestAlertsMuteAndUnmute(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.execute(t, "", "alerts", "mute", "30")
	require.NoError(t, err)
	a, _ := h.backend.Alert(30)
	assert.True(t, a.Options.Muted)

	out, _, err := h.execute(t, "", "-o", "json", "alerts", "unmute", "30")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 30, "muted": false}`, out)
	a, _ = h.backend.Alert(30)
	assert.False(t, a.Options.Muted)

	_, _, err = h.execute(t, "", "alerts", "mute", "999")
	assert.Error(t, err)
}

func TestPlainListsPaginateLocally(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.execute(t, "", "snippets", "list", "--page-size", "1", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.NotContains(t, out, "active")
	assert.Contains(t, out, "page 2, 2 total")

	out, _, err = h.execute(t, "", "dashboards", "list", "--scope", "favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "Executive overview")
}

func TestWrongKeyFails(t *testing.T) {
	h := newHarness(t)
	var root cli
	parser, err := kong.New(&root)
	require.NoError(t, err)
	kctx, err := parser.Parse([]string{"--base-url", h.url, "--api-key", "wrong", "--env-file", "", "alerts", "list"})
	require.NoError(t, err)
	var out, errOut bytes.Buffer
	err = run(context.Background(), kctx, &root.Globals, streams{out: &out, err: &errOut, in: strings.NewReader("")})
	assert.Error(t, err)
	assert.Contains(t, errOut.String(), "permission")
}

func TestListFlagsApply(t *testing.T) {
	defaults := itemslist.Defaults{ItemsPerPage: 20, OrderByField: "created_at", OrderByReverse: true}
	stored := itemslist.State{Page: 3, ItemsPerPage: 20, OrderByField: "name", SearchTerm: "kpi"}

	got := ListFlags{}.apply(stored, defaults)
	assert.True(t, got.Equal(stored))

	got = ListFlags{Reset: true}.apply(stored, defaults)
	assert.True(t, got.Equal(defaults.State()))

	got = ListFlags{PageSize: 60}.apply(stored, defaults)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 60, got.ItemsPerPage)

	got = ListFlags{Search: "revenue", Tag: []string{"ops"}, Order: "-updatedAt"}.apply(stored, defaults)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, "-updated_at", got.Order())
	assert.Equal(t, []string{"ops"}, got.SelectedTags)
}

func TestParseOrder(t *testing.T) {
	cases := map[string]struct {
		field   string
		reverse bool
	}{
		"createdAt":   {"created_at", false},
		"-created_at": {"created_at", true},
		"-UpdatedAt":  {"updated_at", true},
		" name ":      {"name", false},
	}
	for in, want := range cases {
		field, reverse := parseOrder(in)
		assert.Equal(t, want.field, field, in)
		assert.Equal(t, want.reverse, reverse, in)
	}
}
