package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-redash/components/commands"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/components/notify"
	"github.com/goliatone/go-redash/pkg/redash"
)

type dashboardsCmd struct {
	List dashboardsListCmd `cmd:"" help:"List dashboards."`
}

type dashboardsListCmd struct {
	ListFlags `embed:""`
	Scope     string `enum:"all,favorites" default:"all" help:"Which dashboards to list (all, favorites)."`
}

func (cmd *dashboardsListCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.Dashboard]{
		name:    "dashboards:" + cmd.Scope,
		source:  redash.DashboardsSource(a.client),
		params:  itemslist.Params{"currentPage": cmd.Scope},
		orderBy: "created_at",
		reverse: true,
		columns: []column[redash.Dashboard]{
			{title: "id", value: func(d redash.Dashboard) string { return strconv.Itoa(d.ID) }},
			{title: "name", value: func(d redash.Dashboard) string { return d.Name }},
			{title: "tags", value: func(d redash.Dashboard) string { return strings.Join(d.Tags, ",") }},
			{title: "created", value: func(d redash.Dashboard) string { return formatTime(d.CreatedAt) }},
		},
	})
}

type usersCmd struct {
	List usersListCmd `cmd:"" help:"List users."`
}

type usersListCmd struct {
	ListFlags `embed:""`
	Scope     string `enum:"active,pending,disabled" default:"active" help:"Which users to list (active, pending, disabled)."`
}

func (cmd *usersListCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.User]{
		name:    "users:" + cmd.Scope,
		source:  redash.UsersSource(a.client),
		params:  itemslist.Params{"currentPage": cmd.Scope},
		orderBy: "created_at",
		reverse: true,
		columns: []column[redash.User]{
			{title: "id", value: func(u redash.User) string { return strconv.Itoa(u.ID) }},
			{title: "name", value: func(u redash.User) string { return u.Name }},
			{title: "email", value: func(u redash.User) string { return u.Email }},
			{title: "status", value: userStatus},
		},
	})
}

func userStatus(u redash.User) string {
	switch {
	case u.IsDisabled:
		return "disabled"
	case u.IsInvitationPending:
		return "pending"
	}
	return "active"
}

type alertsCmd struct {
	List   alertsListCmd  `cmd:"" help:"List alerts."`
	Mute   alertMuteCmd   `cmd:"" help:"Mute alert notifications."`
	Unmute alertUnmuteCmd `cmd:"" help:"Restore alert notifications."`
}

type alertsListCmd struct {
	ListFlags `embed:""`
}

func (cmd *alertsListCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.Alert]{
		name:    "alerts",
		source:  redash.AlertsSource(a.client),
		orderBy: "created_at",
		reverse: true,
		columns: []column[redash.Alert]{
			{title: "id", value: func(al redash.Alert) string { return strconv.Itoa(al.ID) }},
			{title: "name", value: func(al redash.Alert) string { return al.Name }},
			{title: "state", value: func(al redash.Alert) string { return al.State }},
			{title: "muted", value: func(al redash.Alert) string { return strconv.FormatBool(al.Options.Muted) }},
		},
	})
}

type alertMuteCmd struct {
	ID int `arg:"" help:"Alert id."`
}

func (cmd *alertMuteCmd) Run(ctx context.Context, a *app) error {
	return setAlertMuted(ctx, a, cmd.ID, true)
}

type alertUnmuteCmd struct {
	ID int `arg:"" help:"Alert id."`
}

func (cmd *alertUnmuteCmd) Run(ctx context.Context, a *app) error {
	return setAlertMuted(ctx, a, cmd.ID, false)
}

func setAlertMuted(ctx context.Context, a *app, id int, muted bool) error {
	mute := commands.NewSetAlertMutedCommand(a.client, a.telemetry())
	if err := mute.Execute(ctx, commands.SetAlertMutedInput{ID: id, Muted: muted}); err != nil {
		return err
	}
	if muted {
		a.notifier.Warn(ctx, fmt.Sprintf("Alert %d notifications have been muted.", id), notify.Options{})
	} else {
		a.notifier.Success(ctx, fmt.Sprintf("Alert %d notifications have been restored.", id), notify.Options{})
	}
	return a.printer.printValue(map[string]any{"id": id, "muted": muted}, fmt.Sprintf("alert %d muted: %t", id, muted))
}

type snippetsCmd struct {
	List snippetsListCmd `cmd:"" help:"List query snippets."`
}

type snippetsListCmd struct {
	ListFlags `embed:""`
}

func (cmd *snippetsListCmd) Run(ctx context.Context, a *app) error {
	return runList(ctx, a, cmd.ListFlags, listSpec[redash.QuerySnippet]{
		name:    "snippets",
		source:  redash.QuerySnippetsSource(a.client),
		orderBy: "trigger",
		columns: []column[redash.QuerySnippet]{
			{title: "id", value: func(s redash.QuerySnippet) string { return strconv.Itoa(s.ID) }},
			{title: "trigger", value: func(s redash.QuerySnippet) string { return s.Trigger }},
			{title: "description", value: func(s redash.QuerySnippet) string { return s.Description }},
		},
	})
}
