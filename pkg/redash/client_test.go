package redash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-redash/components/itemslist"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret", InitialBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(HTTPConfig{}); err != ErrMissingBaseURL {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestClientGetQuerySendsHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queries/7" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Key secret" {
			t.Fatalf("expected api key header, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatalf("expected request id header")
		}
		_ = json.NewEncoder(w).Encode(Query{ID: 7, Version: 3, Name: "Revenue"})
	})
	q, err := client.GetQuery(context.Background(), 7)
	if err != nil {
		t.Fatalf("get query: %v", err)
	}
	if q.ID != 7 || q.Version != 3 || q.Name != "Revenue" {
		t.Fatalf("unexpected query %#v", q)
	}
}

func TestClientRetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Alert{ID: 2, Name: "Late orders"})
	})
	alert, err := client.GetAlert(context.Background(), 2)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if alert.Name != "Late orders" || calls.Load() != 3 {
		t.Fatalf("expected success on third attempt, got %#v after %d calls", alert, calls.Load())
	}
}

func TestClientDoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	if err := client.MuteAlert(context.Background(), 4); StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500 api error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientConflictIsDistinct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/queries/9" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Query was changed by another user"}`))
	})
	_, err := client.SaveQuery(context.Background(), map[string]any{"id": 9, "version": 1, "name": "x"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Message != "Query was changed by another user" {
		t.Fatalf("expected decoded message, got %#v", err)
	}
	if IsNotFound(err) || IsForbidden(err) {
		t.Fatalf("conflict must not match other predicates")
	}
}

func TestClientSaveQueryCreatesWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queries" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = 11
		body["version"] = 1
		_ = json.NewEncoder(w).Encode(body)
	})
	out, err := client.SaveQuery(context.Background(), map[string]any{"name": "New Query"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out["id"].(float64) != 11 || out["name"] != "New Query" {
		t.Fatalf("unexpected response %#v", out)
	}
}

func TestQueriesSourceUsesScopeAndParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queries/favorites" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("page_size") != "5" || q.Get("order") != "-created_at" || q.Get("q") != "rev" {
			t.Fatalf("unexpected params %v", q)
		}
		if tags := q["tags"]; len(tags) != 2 {
			t.Fatalf("expected repeated tags, got %v", tags)
		}
		_, _ = w.Write([]byte(`{"count":6,"page":2,"page_size":5,"results":[{"id":6,"name":"Revenue"}]}`))
	})
	source := QueriesSource(client)
	state := itemslist.State{Page: 2, ItemsPerPage: 5, OrderByField: "created_at", OrderByReverse: true, SearchTerm: "rev", SelectedTags: []string{"a", "b"}}
	rc := &itemslist.RequestContext{Params: itemslist.Params{"currentPage": ScopeFavorites}}
	page, err := source.DoRequest(context.Background(), state, rc)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	items, err := source.ProcessResults(page.Results)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if page.Count != 6 || len(items) != 1 || items[0].Name != "Revenue" {
		t.Fatalf("unexpected page %#v %#v", page, items)
	}

	rc.Params = itemslist.Params{"currentPage": "bogus"}
	if _, err := source.DoRequest(context.Background(), state, rc); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
}

func TestUsersSourceFilters(t *testing.T) {
	seen := make(chan string, 3)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.RawQuery
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	})
	source := UsersSource(client)
	for _, scope := range []string{ScopeActive, ScopePending, ScopeDisabled} {
		rc := &itemslist.RequestContext{Params: itemslist.Params{"currentPage": scope}}
		if _, err := source.DoRequest(context.Background(), itemslist.State{Page: 1, ItemsPerPage: 20}, rc); err != nil {
			t.Fatalf("do request %s: %v", scope, err)
		}
	}
	want := []string{"pending=false", "pending=true", "disabled=true"}
	for _, fragment := range want {
		raw := <-seen
		if !containsParam(raw, fragment) {
			t.Fatalf("expected %q in %q", fragment, raw)
		}
	}
}

func TestOutdatedQueriesSourcePublishesUpdatedAt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/queries/outdated" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"queries":[{"id":1,"name":"a"},{"id":2,"name":"b"}],"updated_at":"1700000000.5"}`))
	})
	source := OutdatedQueriesSource(client)
	rc := &itemslist.RequestContext{}
	page, err := source.DoRequest(context.Background(), itemslist.State{}, rc)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if len(page.Results) != 2 || !source.IsPlainList() {
		t.Fatalf("expected plain list of 2, got %#v", page)
	}
	if got := rc.CustomParams()[LastUpdatedAtParam]; got != 1700000000.5 {
		t.Fatalf("expected lastUpdatedAt, got %v", got)
	}
}

func TestTimestampTime(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.Time().IsZero() {
		t.Fatalf("expected zero time for null, got %v %v", ts, err)
	}
	if err := json.Unmarshal([]byte(`1700000000`), &ts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ts.Time().Unix() != 1700000000 {
		t.Fatalf("unexpected time %v", ts.Time())
	}
}

func containsParam(raw, fragment string) bool {
	return slices.Contains(strings.Split(raw, "&"), fragment)
}
