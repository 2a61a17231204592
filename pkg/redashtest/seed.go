package redashtest

import (
	"time"

	"github.com/goliatone/go-redash/pkg/redash"
)

// SeedUserID is the current user of a seeded backend.
const SeedUserID = 1

// NewSeededBackend returns a backend with a small, deterministic data set.
func NewSeededBackend() *Backend {
	b := NewBackend(SeedUserID)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return base.Add(24 * time.Hour) })

	b.AddUser(redash.User{ID: SeedUserID, Name: "Ada Admin", Email: "ada@example.com", CreatedAt: base})
	b.AddUser(redash.User{ID: 2, Name: "Bo Analyst", Email: "bo@example.com", CreatedAt: base})
	b.AddUser(redash.User{ID: 3, Name: "Cy Invited", Email: "cy@example.com", IsInvitationPending: true, CreatedAt: base})
	b.AddUser(redash.User{ID: 4, Name: "Di Former", Email: "di@example.com", IsDisabled: true, CreatedAt: base})

	owner, _ := b.userByID(SeedUserID)
	other, _ := b.userByID(2)
	revenue := b.AddQuery(redash.Query{ID: 10, Name: "Weekly revenue", Query: "select week, sum(total) from orders group by 1", Tags: []string{"finance"}, User: &owner, CanEdit: true, IsFavorite: true, CreatedAt: base})
	signups := b.AddQuery(redash.Query{ID: 11, Name: "Signups by channel", Query: "select channel, count(*) from users group by 1", Tags: []string{"growth"}, User: &other, CreatedAt: base.Add(time.Hour)})
	b.AddQuery(redash.Query{ID: 12, Name: "Legacy churn", Query: "select 1", User: &owner, IsArchived: true, CreatedAt: base.Add(2 * time.Hour)})
	b.AddQuery(redash.Query{ID: 13, Name: "New Query", Query: "", User: &owner, IsDraft: true, CanEdit: true, CreatedAt: base.Add(3 * time.Hour)})

	b.SetQueryColumns(revenue.ID, []redash.Column{{Name: "week", Type: "date"}, {Name: "sum", Type: "float"}})
	b.SetQueryColumns(signups.ID, []redash.Column{{Name: "channel", Type: "string"}, {Name: "count", Type: "integer"}})
	b.MarkOutdated(base.Add(12*time.Hour), signups.ID)

	b.AddDashboard(redash.Dashboard{ID: 20, Name: "Executive overview", Tags: []string{"finance"}, IsFavorite: true, User: &owner, CreatedAt: base})
	b.AddDashboard(redash.Dashboard{ID: 21, Name: "Growth", Tags: []string{"growth"}, User: &other, CreatedAt: base.Add(time.Hour)})

	rearm := 3600
	b.AddAlert(redash.Alert{ID: 30, Name: "Revenue drop", QueryID: revenue.ID, Rearm: &rearm, Options: redash.AlertOptions{Column: "sum", Op: "<", Value: 1000.0}, User: &owner})
	b.AddAlert(redash.Alert{ID: 31, Name: "Signup spike", QueryID: signups.ID, Options: redash.AlertOptions{Column: "count", Op: ">", Value: 500.0, Muted: true}, User: &other})

	b.AddSnippet(redash.QuerySnippet{ID: 40, Trigger: "orders", Description: "Orders base table", Snippet: "select * from orders", User: &owner})
	b.AddSnippet(redash.QuerySnippet{ID: 41, Trigger: "active", Description: "Active users", Snippet: "where active_at > now() - interval '30 days'", User: &owner})
	return b
}

func (b *Backend) userByID(id int) (redash.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	return u, ok
}
