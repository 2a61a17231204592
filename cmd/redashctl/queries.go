package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-redash/components/commands"
	"github.com/goliatone/go-redash/components/config"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/pkg/redash"
)

type queriesCmd struct {
	List     queriesListCmd     `cmd:"" help:"List queries."`
	Outdated queriesOutdatedCmd `cmd:"" help:"List queries whose scheduled refresh is overdue."`
	Rename   queriesRenameCmd   `cmd:"" help:"Rename a query. Drafts are published when auto_publish_named_queries is on."`
	Archive  queriesArchiveCmd  `cmd:"" help:"Archive a query."`
}

type queriesListCmd struct {
	ListFlags `embed:""`
	Scope     string `enum:"all,my,favorites,archive" default:"all" help:"Which queries to list (all, my, favorites, archive)."`
}

func (cmd *queriesListCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.Query]{
		name:    "queries:" + cmd.Scope,
		source:  redash.QueriesSource(a.client),
		params:  itemslist.Params{"currentPage": cmd.Scope},
		orderBy: "created_at",
		reverse: true,
		columns: queryColumns,
	})
}

type queriesOutdatedCmd struct {
	ListFlags `embed:""`
	Watch     bool `short:"w" help:"Keep polling and print the list on every refresh."`
}

func (cmd *queriesOutdatedCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.Query]{
		name:     "queries:outdated",
		source:   redash.OutdatedQueriesSource(a.client),
		orderBy:  "created_at",
		reverse:  true,
		watching: cmd.Watch,
		columns: []column[redash.Query]{
			{title: "id", value: func(q redash.Query) string { return strconv.Itoa(q.ID) }},
			{title: "name", value: func(q redash.Query) string { return q.Name }},
			{title: "retrieved", value: func(q redash.Query) string {
				if q.RetrievedAt == nil {
					return "never"
				}
				return formatTime(*q.RetrievedAt)
			}},
		},
		footer: func(view itemslist.View[redash.Query]) string {
			ts, _ := view.CustomParams[redash.LastUpdatedAtParam].(float64)
			if ts == 0 {
				return ""
			}
			return "report updated " + formatTime(redash.Timestamp(ts).Time())
		},
	})
}

type queriesRenameCmd struct {
	ID   int    `arg:"" help:"Query id."`
	Name string `arg:"" help:"New name."`
}

func (cmd *queriesRenameCmd) Run(ctx context.Context, a *app) error {
	rename := commands.NewRenameQueryCommand(a.client, a.updater, a.telemetry())
	ctx = config.WithContext(ctx, a.cfg)
	var renamed redash.Query
	err := rename.Execute(ctx, commands.RenameQueryInput{
		ID:     cmd.ID,
		Name:   cmd.Name,
		Result: func(q redash.Query) { renamed = q },
	})
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("query %d renamed to %q", renamed.ID, renamed.Name)
	return a.printer.printValue(renamed, summary)
}

type queriesArchiveCmd struct {
	ID int `arg:"" help:"Query id."`
}

func (cmd *queriesArchiveCmd) Run(ctx context.Context, a *app) error {
	archive := commands.NewArchiveQueryCommand(a.client, a.updater, a.telemetry())
	var archived redash.Query
	err := archive.Execute(ctx, commands.ArchiveQueryInput{
		ID:     cmd.ID,
		Result: func(q redash.Query) { archived = q },
	})
	if err != nil {
		return err
	}
	return a.printer.printValue(archived, fmt.Sprintf("query %d archived", archived.ID))
}

var queryColumns = []column[redash.Query]{
	{title: "id", value: func(q redash.Query) string { return strconv.Itoa(q.ID) }},
	{title: "name", value: func(q redash.Query) string { return q.Name }},
	{title: "tags", value: func(q redash.Query) string { return strings.Join(q.Tags, ",") }},
	{title: "status", value: queryStatus},
	{title: "created", value: func(q redash.Query) string { return formatTime(q.CreatedAt) }},
}

func queryStatus(q redash.Query) string {
	switch {
	case q.IsArchived:
		return "archived"
	case q.IsDraft:
		return "draft"
	}
	return "published"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
