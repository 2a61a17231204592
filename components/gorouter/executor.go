package gorouter

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-redash/components/commands"
)

// Executor runs the editing commands exposed over HTTP.
type Executor interface {
	RenameQuery(ctx context.Context, in commands.RenameQueryInput) error
	ArchiveQuery(ctx context.Context, in commands.ArchiveQueryInput) error
	SetAlertMuted(ctx context.Context, in commands.SetAlertMutedInput) error
}

// CommandExecutor implements Executor on top of go-command commanders so transports
// stay decoupled from the services behind them.
type CommandExecutor struct {
	RenameCommander  gocommand.Commander[commands.RenameQueryInput]
	ArchiveCommander gocommand.Commander[commands.ArchiveQueryInput]
	MuteCommander    gocommand.Commander[commands.SetAlertMutedInput]
}

var errCommandUnavailable = errors.New("gorouter: command not configured")

func (e *CommandExecutor) RenameQuery(ctx context.Context, in commands.RenameQueryInput) error {
	if e == nil || e.RenameCommander == nil {
		return errCommandUnavailable
	}
	return e.RenameCommander.Execute(ctx, in)
}

func (e *CommandExecutor) ArchiveQuery(ctx context.Context, in commands.ArchiveQueryInput) error {
	if e == nil || e.ArchiveCommander == nil {
		return errCommandUnavailable
	}
	return e.ArchiveCommander.Execute(ctx, in)
}

func (e *CommandExecutor) SetAlertMuted(ctx context.Context, in commands.SetAlertMutedInput) error {
	if e == nil || e.MuteCommander == nil {
		return errCommandUnavailable
	}
	return e.MuteCommander.Execute(ctx, in)
}
