package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-redash/components/editing"
	"github.com/goliatone/go-redash/components/queryeditor"
	"github.com/goliatone/go-redash/pkg/redash"
)

var (
	errMissingLoader  = errors.New("commands: query loader is required")
	errMissingUpdater = errors.New("commands: query updater is required")
)

type queryLoader interface {
	GetQuery(ctx context.Context, id int) (redash.Query, error)
}

type renameUpdater interface {
	RenameQuery(ctx context.Context, query editing.Fields, name string) (editing.Fields, editing.SaveOutcome)
}

type archiveUpdater interface {
	ArchiveQuery(ctx context.Context, query editing.Fields) (editing.Fields, error)
}

// RenameQueryInput names the query to rename. Result, when set, receives the query
// as stored after the rename.
type RenameQueryInput struct {
	ID     int
	Name   string
	Result func(redash.Query)
}

// RenameQueryCommand loads the latest copy of a query and renames it through the
// updater, so drafts are published the same way the editor does it.
type RenameQueryCommand struct {
	loader    queryLoader
	updater   renameUpdater
	telemetry Telemetry
}

// NewRenameQueryCommand creates a command instance.
func NewRenameQueryCommand(loader queryLoader, updater renameUpdater, telemetry Telemetry) *RenameQueryCommand {
	return &RenameQueryCommand{loader: loader, updater: updater, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RenameQueryInput] = (*RenameQueryCommand)(nil)

// Execute renames the query. Conflicts and failures are returned as errors.
func (c *RenameQueryCommand) Execute(ctx context.Context, msg RenameQueryInput) error {
	if c.loader == nil {
		return errMissingLoader
	}
	if c.updater == nil {
		return errMissingUpdater
	}
	fields, err := loadFields(ctx, c.loader, msg.ID)
	if err != nil {
		return err
	}
	out, outcome := c.updater.RenameQuery(ctx, fields, msg.Name)
	if !outcome.Succeeded() {
		return fmt.Errorf("commands: rename query %d: %w", msg.ID, outcome.Err)
	}
	c.telemetry.Record(ctx, "redash.query.rename", map[string]any{"query_id": msg.ID})
	return deliver(out, msg.Result)
}

// ArchiveQueryInput names the query to archive.
type ArchiveQueryInput struct {
	ID     int
	Result func(redash.Query)
}

// ArchiveQueryCommand archives a query after the updater's confirmation step.
type ArchiveQueryCommand struct {
	loader    queryLoader
	updater   archiveUpdater
	telemetry Telemetry
}

// NewArchiveQueryCommand creates a command instance.
func NewArchiveQueryCommand(loader queryLoader, updater archiveUpdater, telemetry Telemetry) *ArchiveQueryCommand {
	return &ArchiveQueryCommand{loader: loader, updater: updater, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ArchiveQueryInput] = (*ArchiveQueryCommand)(nil)

// Execute archives the query.
func (c *ArchiveQueryCommand) Execute(ctx context.Context, msg ArchiveQueryInput) error {
	if c.loader == nil {
		return errMissingLoader
	}
	if c.updater == nil {
		return errMissingUpdater
	}
	fields, err := loadFields(ctx, c.loader, msg.ID)
	if err != nil {
		return err
	}
	out, err := c.updater.ArchiveQuery(ctx, fields)
	if err != nil {
		return fmt.Errorf("commands: archive query %d: %w", msg.ID, err)
	}
	c.telemetry.Record(ctx, "redash.query.archive", map[string]any{"query_id": msg.ID})
	return deliver(out, msg.Result)
}

func loadFields(ctx context.Context, loader queryLoader, id int) (editing.Fields, error) {
	q, err := loader.GetQuery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("commands: load query %d: %w", id, err)
	}
	return queryeditor.FromQuery(q)
}

func deliver(fields editing.Fields, result func(redash.Query)) error {
	if result == nil {
		return nil
	}
	q, err := queryeditor.ToQuery(fields)
	if err != nil {
		return fmt.Errorf("commands: decode query: %w", err)
	}
	result(q)
	return nil
}
