package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type cli struct {
	Globals

	Queries    queriesCmd    `cmd:"" help:"List, rename and archive queries."`
	Dashboards dashboardsCmd `cmd:"" help:"List dashboards."`
	Users      usersCmd      `cmd:"" help:"List users."`
	Alerts     alertsCmd     `cmd:"" help:"List alerts and toggle their notifications."`
	Snippets   snippetsCmd   `cmd:"" help:"List query snippets."`
}

type Globals struct {
	Config   string `type:"path" env:"REDASH_CONFIG" help:"Optional YAML configuration file."`
	EnvFile  string `name:"env-file" default:".env" help:"Environment file loaded before reading REDASH_* variables."`
	BaseURL  string `name:"base-url" help:"Redash base URL (overrides configuration)."`
	APIKey   string `name:"api-key" help:"API key (overrides configuration)."`
	Format   string `short:"o" enum:"table,json,yaml" default:"table" help:"Output format (table, json, yaml)."`
	Yes      bool   `short:"y" help:"Answer yes to confirmation prompts."`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)."`
}

func main() {
	var root cli
	parser := kong.Must(&root,
		kong.Name("redashctl"),
		kong.Description("Command line client for Redash list and editing APIs."),
		kong.UsageOnError(),
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = run(ctx, kctx, &root.Globals, streams{out: os.Stdout, err: os.Stderr, in: os.Stdin})
	kctx.FatalIfErrorf(err)
}

type streams struct {
	out io.Writer
	err io.Writer
	in  io.Reader
}

// run builds the application from the parsed globals and dispatches the selected
// command with the context and app bound.
func run(ctx context.Context, kctx *kong.Context, g *Globals, std streams) error {
	a, err := newApp(ctx, g, std)
	if err != nil {
		return err
	}
	defer a.Close()
	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(a)
}
