package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. REDASH_BASE_URL.
const EnvPrefix = "REDASH"

var ErrMissingBaseURL = errors.New("config: base_url is required")

// Config is the client configuration snapshot. It is built once by Load and never
// changed afterwards; slice and map accessors return copies.
type Config struct {
	BaseURL                 string
	APIKey                  string
	Timeout                 time.Duration
	MaxRetries              int
	PageSize                int
	SearchDebounce          time.Duration
	PollInterval            time.Duration
	AutoPublishNamedQueries bool
	RedisAddr               string
	LogLevel                string

	pageSizeOptions []int
	features        map[string]bool
}

// PageSizeOptions returns the page sizes offered by list views.
func (c Config) PageSizeOptions() []int { return slices.Clone(c.pageSizeOptions) }

// Feature reports whether a feature flag is on.
func (c Config) Feature(name string) bool { return c.features[name] }

// Features returns every configured flag.
func (c Config) Features() map[string]bool { return maps.Clone(c.features) }

// ListDefaults returns list defaults for a given default ordering.
func (c Config) ListDefaults(orderBy string, reverse bool) itemslist.Defaults {
	return itemslist.Defaults{
		Page:           itemslist.DefaultPage,
		ItemsPerPage:   c.PageSize,
		OrderByField:   orderBy,
		OrderByReverse: reverse,
	}
}

// Logger builds a zerolog logger at the configured level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an optional YAML file.
	ConfigFile string
	// DotEnvFile is loaded into the process environment when present.
	DotEnvFile string
	// RequireBaseURL makes a missing base_url an error.
	RequireBaseURL bool
}

// Load reads path (when set) plus the environment and a local .env file.
func Load(path string) (Config, error) {
	return LoadWith(LoadOptions{ConfigFile: path, DotEnvFile: ".env", RequireBaseURL: true})
}

// LoadWith builds a Config snapshot.
func LoadWith(opts LoadOptions) (Config, error) {
	if opts.DotEnvFile != "" {
		if err := godotenv.Load(opts.DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", opts.DotEnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := Config{
		BaseURL:                 strings.TrimRight(strings.TrimSpace(v.GetString("base_url")), "/"),
		APIKey:                  strings.TrimSpace(v.GetString("api_key")),
		Timeout:                 v.GetDuration("timeout"),
		MaxRetries:              v.GetInt("max_retries"),
		PageSize:                v.GetInt("page_size"),
		SearchDebounce:          itemslist.ClampSearchDebounce(v.GetDuration("search_debounce")),
		PollInterval:            v.GetDuration("poll_interval"),
		AutoPublishNamedQueries: v.GetBool("auto_publish_named_queries"),
		RedisAddr:               v.GetString("redis_addr"),
		LogLevel:                v.GetString("log_level"),
		pageSizeOptions:         pageSizes(v.GetIntSlice("page_size_options")),
		features:                featureFlags(v.GetStringMap("features")),
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = itemslist.DefaultItemsPerPage
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = itemslist.DefaultAutoUpdateInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if opts.RequireBaseURL && cfg.BaseURL == "" {
		return Config{}, ErrMissingBaseURL
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeout", "10s")
	v.SetDefault("max_retries", 3)
	v.SetDefault("page_size", itemslist.DefaultItemsPerPage)
	v.SetDefault("page_size_options", []int{5, 10, 20, 50, 100})
	v.SetDefault("search_debounce", itemslist.DefaultSearchDebounce.String())
	v.SetDefault("poll_interval", itemslist.DefaultAutoUpdateInterval.String())
	v.SetDefault("auto_publish_named_queries", false)
	v.SetDefault("log_level", "info")
}

func pageSizes(in []int) []int {
	out := make([]int, 0, len(in))
	for _, size := range in {
		if size > 0 {
			out = append(out, size)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func featureFlags(in map[string]any) map[string]bool {
	out := make(map[string]bool, len(in))
	for name, raw := range in {
		switch v := raw.(type) {
		case bool:
			out[name] = v
		case string:
			out[name] = v == "true" || v == "1" || v == "on"
		}
	}
	return out
}

type contextKey struct{}

// WithContext stores cfg on ctx.
func WithContext(ctx context.Context, cfg Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration stored by WithContext.
func FromContext(ctx context.Context) (Config, bool) {
	if ctx == nil {
		return Config{}, false
	}
	cfg, ok := ctx.Value(contextKey{}).(Config)
	return cfg, ok
}

// New builds a snapshot directly, for callers that do not read files. Zero values
// take the same defaults as Load.
func New(cfg Config, pageSizeOptions []int, features map[string]bool) Config {
	if cfg.PageSize < 1 {
		cfg.PageSize = itemslist.DefaultItemsPerPage
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = itemslist.DefaultAutoUpdateInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.SearchDebounce = itemslist.ClampSearchDebounce(cfg.SearchDebounce)
	if pageSizeOptions == nil {
		pageSizeOptions = []int{5, 10, 20, 50, 100}
	}
	cfg.pageSizeOptions = pageSizes(pageSizeOptions)
	cfg.features = maps.Clone(features)
	return cfg
}
