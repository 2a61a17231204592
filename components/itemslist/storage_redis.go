package itemslist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisClient is the subset of go-redis used by RedisStateStorage.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStateStorageOptions configures a RedisStateStorage.
type RedisStateStorageOptions struct {
	Client   RedisClient
	Key      string
	Defaults Defaults
	TTL      time.Duration
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// RedisStateStorage persists list state in Redis so a list can be resumed across
// processes (CLI sessions, workers).
type RedisStateStorage struct {
	opts RedisStateStorageOptions
}

type storedState struct {
	Page           int      `json:"page"`
	ItemsPerPage   int      `json:"page_size"`
	OrderByField   string   `json:"order_by"`
	OrderByReverse bool     `json:"order_reverse"`
	SearchTerm     string   `json:"q,omitempty"`
	SelectedTags   []string `json:"tags,omitempty"`
}

// NewRedisStateStorage validates options and builds the storage.
func NewRedisStateStorage(opts RedisStateStorageOptions) (*RedisStateStorage, error) {
	if opts.Client == nil {
		return nil, errors.New("itemslist: redis client is required")
	}
	if opts.Key == "" {
		return nil, errors.New("itemslist: redis key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	opts.Defaults = opts.Defaults.normalized()
	return &RedisStateStorage{opts: opts}, nil
}

// Load returns the stored state. Missing or unreadable entries yield the defaults.
func (s *RedisStateStorage) Load() State {
	state := s.opts.Defaults.State()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	raw, err := s.opts.Client.Get(ctx, s.opts.Key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.opts.Logger.Warn().Err(err).Str("key", s.opts.Key).Msg("list state load failed")
		}
		return state
	}
	var stored storedState
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.opts.Logger.Warn().Err(err).Str("key", s.opts.Key).Msg("list state decode failed")
		return state
	}
	if stored.Page > 0 {
		state.Page = stored.Page
	}
	if stored.ItemsPerPage > 0 {
		state.ItemsPerPage = stored.ItemsPerPage
	}
	state.OrderByField = stored.OrderByField
	state.OrderByReverse = stored.OrderByReverse
	state.SearchTerm = stored.SearchTerm
	state.SelectedTags = normalizeTags(stored.SelectedTags)
	return state
}

// Save writes the state snapshot.
func (s *RedisStateStorage) Save(state State) error {
	payload, err := json.Marshal(storedState{
		Page:           state.Page,
		ItemsPerPage:   state.ItemsPerPage,
		OrderByField:   state.OrderByField,
		OrderByReverse: state.OrderByReverse,
		SearchTerm:     state.SearchTerm,
		SelectedTags:   normalizeTags(state.SelectedTags),
	})
	if err != nil {
		return fmt.Errorf("itemslist: encode state: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	if err := s.opts.Client.Set(ctx, s.opts.Key, payload, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("itemslist: save state %s: %w", s.opts.Key, err)
	}
	return nil
}
