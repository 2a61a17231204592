// Package redashtest provides an in-memory Redash backend for tests and local
// development.
package redashtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-redash/pkg/redash"
)

var (
	ErrNotFound = errors.New("redashtest: not found")
	ErrConflict = errors.New("redashtest: version conflict")
	ErrInvalid  = errors.New("redashtest: invalid request")
)

// read-only query fields that a save payload cannot change.
var readOnlyQueryFields = []string{"id", "version", "user", "created_at", "updated_at", "can_edit", "is_archived", "is_favorite"}

const defaultPageSize = 25

// ListParams are the standard list parameters.
type ListParams struct {
	Page     int
	PageSize int
	Order    string
	Q        string
	Tags     []string
}

// ParseListParams reads list parameters from a query string.
func ParseListParams(values url.Values) ListParams {
	p := ListParams{
		Page:     atoiDefault(values.Get("page"), 1),
		PageSize: atoiDefault(values.Get("page_size"), defaultPageSize),
		Order:    values.Get("order"),
		Q:        values.Get("q"),
		Tags:     values["tags"],
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	return p
}

// Page is a paginated response envelope.
type Page struct {
	Count    int   `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []any `json:"results"`
}

// Backend holds versioned resources in memory. It is safe for concurrent use.
type Backend struct {
	mu          sync.RWMutex
	nextID      int
	currentUser int
	now         func() time.Time

	queries    map[int]redash.Query
	dashboards map[int]redash.Dashboard
	users      map[int]redash.User
	alerts     map[int]redash.Alert
	snippets   map[int]redash.QuerySnippet
	columns    map[int][]redash.Column
	outdated   []int
	checkedAt  time.Time
}

// NewBackend returns an empty backend whose current user is userID.
func NewBackend(userID int) *Backend {
	return &Backend{
		nextID:      1000,
		currentUser: userID,
		now:         func() time.Time { return time.Now().UTC() },
		queries:     map[int]redash.Query{},
		dashboards:  map[int]redash.Dashboard{},
		users:       map[int]redash.User{},
		alerts:      map[int]redash.Alert{},
		snippets:    map[int]redash.QuerySnippet{},
		columns:     map[int][]redash.Column{},
	}
}

// SetClock replaces the time source.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *Backend) allocID(id int) int {
	if id != 0 {
		if id >= b.nextID {
			b.nextID = id + 1
		}
		return id
	}
	id = b.nextID
	b.nextID++
	return id
}

// AddQuery stores q, assigning an id and version 1 when missing.
func (b *Backend) AddQuery(q redash.Query) redash.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	q.ID = b.allocID(q.ID)
	if q.Version == 0 {
		q.Version = 1
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = b.now()
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	if q.User == nil {
		if u, ok := b.users[b.currentUser]; ok {
			q.User = &u
		}
	}
	b.queries[q.ID] = q
	return q
}

// Query returns a query by id.
func (b *Backend) Query(id int) (redash.Query, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.queries[id]
	if !ok {
		return redash.Query{}, fmt.Errorf("%w: query %d", ErrNotFound, id)
	}
	return q, nil
}

// ListQueries returns a page of queries for a scope (all, my, favorites, archive).
func (b *Backend) ListQueries(scope string, params ListParams) (Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var items []redash.Query
	for _, q := range b.queries {
		switch scope {
		case redash.ScopeAll, "":
			if q.IsArchived {
				continue
			}
		case redash.ScopeMine:
			if q.IsArchived || q.User == nil || q.User.ID != b.currentUser {
				continue
			}
		case redash.ScopeFavorites:
			if q.IsArchived || !q.IsFavorite {
				continue
			}
		case redash.ScopeArchive:
			if !q.IsArchived {
				continue
			}
		default:
			return Page{}, fmt.Errorf("%w: scope %q", ErrNotFound, scope)
		}
		if !matches(params, q.Name+" "+q.Description, q.Tags) {
			continue
		}
		items = append(items, q)
	}
	return paginate(items, params)
}

// SaveQuery applies a partial payload. A payload with an id updates that query and
// must carry the current version unless it omits version entirely; a payload without
// an id creates a query.
func (b *Backend) SaveQuery(fields map[string]any) (redash.Query, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := intOf(fields["id"])
	var current redash.Query
	if id != 0 {
		q, ok := b.queries[id]
		if !ok {
			return redash.Query{}, fmt.Errorf("%w: query %d", ErrNotFound, id)
		}
		if raw, ok := fields["version"]; ok && intOf(raw) != q.Version {
			return redash.Query{}, fmt.Errorf("%w: query %d is at version %d", ErrConflict, id, q.Version)
		}
		current = q
	} else {
		current = redash.Query{IsDraft: true, CreatedAt: b.now()}
		if u, ok := b.users[b.currentUser]; ok {
			current.User = &u
		}
	}

	next, err := overlay(current, fields, readOnlyQueryFields)
	if err != nil {
		return redash.Query{}, err
	}
	next.ID = b.allocID(current.ID)
	next.Version = current.Version + 1
	next.UpdatedAt = b.now()
	b.queries[next.ID] = next
	return next, nil
}

// ArchiveQuery archives a query and clears its schedule.
func (b *Backend) ArchiveQuery(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queries[id]
	if !ok {
		return fmt.Errorf("%w: query %d", ErrNotFound, id)
	}
	q.IsArchived = true
	q.Schedule = nil
	q.Version++
	q.UpdatedAt = b.now()
	b.queries[id] = q
	return nil
}

// SetQueryColumns records the result columns of a query.
func (b *Backend) SetQueryColumns(id int, columns []redash.Column) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[id] = slices.Clone(columns)
}

// QueryColumns returns the result columns of a query.
func (b *Backend) QueryColumns(id int) ([]redash.Column, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.queries[id]; !ok {
		return nil, fmt.Errorf("%w: query %d", ErrNotFound, id)
	}
	return slices.Clone(b.columns[id]), nil
}

// MarkOutdated sets the outdated queries report.
func (b *Backend) MarkOutdated(checkedAt time.Time, ids ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outdated = slices.Clone(ids)
	b.checkedAt = checkedAt
}

// Outdated returns the outdated queries report.
func (b *Backend) Outdated() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	queries := make([]redash.Query, 0, len(b.outdated))
	for _, id := range b.outdated {
		if q, ok := b.queries[id]; ok {
			queries = append(queries, q)
		}
	}
	var updatedAt any
	if !b.checkedAt.IsZero() {
		updatedAt = strconv.FormatFloat(float64(b.checkedAt.UnixMilli())/1000, 'f', 3, 64)
	}
	return map[string]any{"queries": queries, "updated_at": updatedAt}
}

// AddDashboard stores a dashboard.
func (b *Backend) AddDashboard(d redash.Dashboard) redash.Dashboard {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.ID = b.allocID(d.ID)
	if d.Slug == "" {
		d.Slug = strings.ReplaceAll(strings.ToLower(d.Name), " ", "-")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = b.now()
		d.UpdatedAt = d.CreatedAt
	}
	b.dashboards[d.ID] = d
	return d
}

// ListDashboards returns a page of dashboards for a scope (all, favorites).
func (b *Backend) ListDashboards(scope string, params ListParams) (Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var items []redash.Dashboard
	for _, d := range b.dashboards {
		if d.IsArchived {
			continue
		}
		switch scope {
		case redash.ScopeAll, "":
		case redash.ScopeFavorites:
			if !d.IsFavorite {
				continue
			}
		default:
			return Page{}, fmt.Errorf("%w: scope %q", ErrNotFound, scope)
		}
		if !matches(params, d.Name, d.Tags) {
			continue
		}
		items = append(items, d)
	}
	return paginate(items, params)
}

// SetDashboardSharing enables or disables the public link of a dashboard.
func (b *Backend) SetDashboardSharing(id int, enabled bool) (redash.DashboardShare, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.dashboards[id]
	if !ok {
		return redash.DashboardShare{}, fmt.Errorf("%w: dashboard %d", ErrNotFound, id)
	}
	if enabled {
		d.APIKey = fmt.Sprintf("key-%d-%d", id, b.now().UnixNano())
		d.PublicURL = fmt.Sprintf("/public/dashboards/%s", d.APIKey)
	} else {
		d.APIKey, d.PublicURL = "", ""
	}
	b.dashboards[id] = d
	return redash.DashboardShare{PublicURL: d.PublicURL, APIKey: d.APIKey}, nil
}

// AddUser stores a user.
func (b *Backend) AddUser(u redash.User) redash.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u.ID = b.allocID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = b.now()
	}
	b.users[u.ID] = u
	return u
}

// CreateUser invites a user. The invitation stays pending.
func (b *Backend) CreateUser(name, email string) (redash.User, error) {
	if strings.TrimSpace(name) == "" || !strings.Contains(email, "@") {
		return redash.User{}, fmt.Errorf("%w: name and a valid email are required", ErrInvalid)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return redash.User{}, fmt.Errorf("%w: email already taken", ErrInvalid)
		}
	}
	u := redash.User{ID: b.allocID(0), Name: name, Email: email, IsInvitationPending: true, CreatedAt: b.now()}
	b.users[u.ID] = u
	return u, nil
}

// ListUsers returns a page of users. Pending and disabled select the sidebar sections.
func (b *Backend) ListUsers(params ListParams, filters url.Values) (Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var items []redash.User
	for _, u := range b.users {
		if filters.Get("disabled") == "true" {
			if !u.IsDisabled {
				continue
			}
		} else {
			if u.IsDisabled {
				continue
			}
			if p := filters.Get("pending"); p != "" && (p == "true") != u.IsInvitationPending {
				continue
			}
		}
		if !matches(params, u.Name+" "+u.Email, nil) {
			continue
		}
		items = append(items, u)
	}
	return paginate(items, params)
}

// SetUserDisabled toggles a user's disabled flag.
func (b *Backend) SetUserDisabled(id int, disabled bool) (redash.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return redash.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	u.IsDisabled = disabled
	b.users[id] = u
	return u, nil
}

// DeleteUser removes a pending user.
func (b *Backend) DeleteUser(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if !u.IsInvitationPending {
		return fmt.Errorf("%w: only pending users can be deleted", ErrInvalid)
	}
	delete(b.users, id)
	return nil
}

// AddAlert stores an alert.
func (b *Backend) AddAlert(a redash.Alert) redash.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putAlert(a)
}

func (b *Backend) putAlert(a redash.Alert) redash.Alert {
	a.ID = b.allocID(a.ID)
	if a.Query != nil && a.QueryID == 0 {
		a.QueryID = a.Query.ID
	}
	if q, ok := b.queries[a.QueryID]; ok {
		a.Query = &q
	}
	if a.State == "" {
		a.State = "unknown"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = b.now()
	}
	a.UpdatedAt = b.now()
	b.alerts[a.ID] = a
	return a
}

// Alerts returns every alert ordered by id.
func (b *Backend) Alerts() []redash.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]redash.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y redash.Alert) int { return x.ID - y.ID })
	return out
}

// Alert returns one alert.
func (b *Backend) Alert(id int) (redash.Alert, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.alerts[id]
	if !ok {
		return redash.Alert{}, fmt.Errorf("%w: alert %d", ErrNotFound, id)
	}
	return a, nil
}

// SaveAlert creates or updates an alert from a client payload.
func (b *Backend) SaveAlert(id int, payload redash.Alert) (redash.Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if payload.QueryID == 0 {
		return redash.Alert{}, fmt.Errorf("%w: query_id is required", ErrInvalid)
	}
	if _, ok := b.queries[payload.QueryID]; !ok {
		return redash.Alert{}, fmt.Errorf("%w: query %d", ErrNotFound, payload.QueryID)
	}
	if id != 0 {
		current, ok := b.alerts[id]
		if !ok {
			return redash.Alert{}, fmt.Errorf("%w: alert %d", ErrNotFound, id)
		}
		payload.CreatedAt = current.CreatedAt
		payload.State = current.State
		payload.User = current.User
	} else if u, ok := b.users[b.currentUser]; ok {
		payload.User = &u
	}
	payload.ID = id
	return b.putAlert(payload), nil
}

// DeleteAlert removes an alert.
func (b *Backend) DeleteAlert(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.alerts[id]; !ok {
		return fmt.Errorf("%w: alert %d", ErrNotFound, id)
	}
	delete(b.alerts, id)
	return nil
}

// SetAlertMuted mutes or unmutes an alert.
func (b *Backend) SetAlertMuted(id int, muted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.alerts[id]
	if !ok {
		return fmt.Errorf("%w: alert %d", ErrNotFound, id)
	}
	a.Options.Muted = muted
	b.alerts[id] = a
	return nil
}

// AddSnippet stores a query snippet.
func (b *Backend) AddSnippet(s redash.QuerySnippet) redash.QuerySnippet {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.ID = b.allocID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = b.now()
	}
	b.snippets[s.ID] = s
	return s
}

// Snippets returns every snippet ordered by id.
func (b *Backend) Snippets() []redash.QuerySnippet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]redash.QuerySnippet, 0, len(b.snippets))
	for _, s := range b.snippets {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y redash.QuerySnippet) int { return x.ID - y.ID })
	return out
}

// overlay applies payload fields onto current through JSON, skipping read-only keys.
func overlay[T any](current T, payload map[string]any, readOnly []string) (T, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return current, err
	}
	for k, v := range payload {
		if slices.Contains(readOnly, k) {
			continue
		}
		merged[k] = v
	}
	raw, err = json.Marshal(merged)
	if err != nil {
		return current, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return current, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return out, nil
}

func matches(params ListParams, text string, tags []string) bool {
	if params.Q != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(params.Q)) {
		return false
	}
	for _, tag := range params.Tags {
		if !slices.Contains(tags, tag) {
			return false
		}
	}
	return true
}

func intOf(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}

func atoiDefault(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
