package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-redash/components/config"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/components/menu"
	"github.com/goliatone/go-redash/components/notify"
	"github.com/goliatone/go-redash/components/queryeditor"
	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const listStateTTL = 30 * 24 * time.Hour

// app carries everything commands share for one invocation.
type app struct {
	cfg       config.Config
	client    *redash.Client
	updater   *queryeditor.Updater
	logger    zerolog.Logger
	notifier  notify.Notifier
	confirmer menu.Confirmer
	printer   printer
	redis     *redis.Client
}

func newApp(ctx context.Context, g *Globals, std streams) (*app, error) {
	cfg, err := config.LoadWith(config.LoadOptions{ConfigFile: g.Config, DotEnvFile: g.EnvFile})
	if err != nil {
		return nil, err
	}
	cfg = applyOverrides(cfg, g)
	if cfg.BaseURL == "" {
		return nil, config.ErrMissingBaseURL
	}

	logger := cfg.Logger(zerolog.ConsoleWriter{Out: std.err, NoColor: true, TimeFormat: time.Kitchen})
	client, err := redash.NewClient(redash.HTTPConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger.With().Str("component", "redash").Logger(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		notifier: notify.LogNotifier{Logger: logger},
		printer:  printer{out: std.out, format: g.Format},
	}
	a.confirmer = promptConfirmer(g.Yes, std.in, std.err)
	a.updater, err = queryeditor.NewUpdater(queryeditor.Options{
		Service:   client,
		Notifier:  a.notifier,
		Confirmer: a.confirmer,
		Telemetry: a.telemetry(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, list state will not be kept")
			a.redis.Close()
			a.redis = nil
		}
	}
	return a, nil
}

func applyOverrides(cfg config.Config, g *Globals) config.Config {
	if g.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(g.BaseURL, "/")
	}
	if g.APIKey != "" {
		cfg.APIKey = g.APIKey
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	return config.New(cfg, cfg.PageSizeOptions(), cfg.Features())
}

// Close releases the redis connection when one was opened.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// storage returns where the state of list name is kept between runs.
func (a *app) storage(name string, defaults itemslist.Defaults) itemslist.StateStorage {
	if a.redis == nil {
		return itemslist.NewMemoryStateStorage(defaults)
	}
	storage, err := itemslist.NewRedisStateStorage(itemslist.RedisStateStorageOptions{
		Client:   a.redis,
		Key:      "redashctl:lists:" + name,
		Defaults: defaults,
		TTL:      listStateTTL,
		Logger:   a.logger,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("list", name).Msg("list state storage")
		return itemslist.NewMemoryStateStorage(defaults)
	}
	return storage
}

// logTelemetry reports telemetry events as debug logs.
type logTelemetry struct {
	logger zerolog.Logger
}

func (t logTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.logger.Debug().Str("event", event).Fields(payload).Msg("telemetry")
}

func (a *app) telemetry() logTelemetry {
	return logTelemetry{logger: a.logger}
}

func promptConfirmer(yes bool, in io.Reader, out io.Writer) menu.Confirmer {
	if yes {
		return menu.ConfirmFunc(func(context.Context, string) bool { return true })
	}
	reader := bufio.NewReader(in)
	return menu.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}
