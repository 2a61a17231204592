package itemslist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLStateStorageRoundTrip(t *testing.T) {
	defaults := Defaults{ItemsPerPage: 20, OrderByField: "created_at", OrderByReverse: true}
	cases := map[string]State{
		"defaults":      defaults.State(),
		"page and size": {Page: 3, ItemsPerPage: 50, OrderByField: "created_at", OrderByReverse: true},
		"ascending":     {Page: 1, ItemsPerPage: 20, OrderByField: "created_at"},
		"other field":   {Page: 2, ItemsPerPage: 20, OrderByField: "name", OrderByReverse: true},
		"no order":      {Page: 1, ItemsPerPage: 20},
		"search":        {Page: 1, ItemsPerPage: 20, OrderByField: "created_at", OrderByReverse: true, SearchTerm: "weekly revenue"},
		"tags":          {Page: 1, ItemsPerPage: 10, OrderByField: "created_at", OrderByReverse: true, SelectedTags: []string{"sales", "finance"}},
		"toggled empty": toggleSorting(State{Page: 1, ItemsPerPage: 20}, ""),
		"cleared order": toggleSorting(defaults.State(), ""),
	}
	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			loc, err := ParseLocation("https://redash.example.com/queries")
			require.NoError(t, err)
			require.NoError(t, NewURLStateStorage(loc, defaults).Save(state))

			reloaded, err := ParseLocation(loc.String())
			require.NoError(t, err)
			got := NewURLStateStorage(reloaded, defaults).Load()
			assert.True(t, got.Equal(state), "got %+v want %+v", got, state)
		})
	}
}

func TestURLStateStorageOmitsDefaults(t *testing.T) {
	defaults := Defaults{OrderByField: "created_at", OrderByReverse: true}
	loc, err := ParseLocation("https://redash.example.com/dashboards?utm=mail")
	require.NoError(t, err)
	storage := NewURLStateStorage(loc, defaults)

	require.NoError(t, storage.Save(defaults.State()))
	assert.Equal(t, "https://redash.example.com/dashboards?utm=mail", loc.String())

	state := defaults.State()
	state.Page = 2
	require.NoError(t, storage.Save(state))
	query := loc.Query()
	assert.Equal(t, "2", query.Get("page"))
	assert.False(t, query.Has("order"))
	assert.False(t, query.Has("page_size"))
	assert.Equal(t, "mail", query.Get("utm"))
}

func TestURLStateStorageIgnoresInvalidValues(t *testing.T) {
	loc, err := ParseLocation("https://redash.example.com/queries?page=abc&page_size=-4")
	require.NoError(t, err)
	state := NewURLStateStorage(loc, Defaults{}).Load()
	assert.Equal(t, DefaultPage, state.Page)
	assert.Equal(t, DefaultItemsPerPage, state.ItemsPerPage)
}

func TestMemoryStateStorage(t *testing.T) {
	storage := NewMemoryStateStorage(Defaults{ItemsPerPage: 5})
	assert.Equal(t, 5, storage.Load().ItemsPerPage)

	state := storage.Load()
	state.SelectedTags = []string{"b", "a"}
	require.NoError(t, storage.Save(state))
	state.SelectedTags[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, storage.Load().SelectedTags)
}

func TestRedisStateStorageRoundTrip(t *testing.T) {
	client := newStubRedis()
	storage, err := NewRedisStateStorage(RedisStateStorageOptions{
		Client:   client,
		Key:      "redash:lists:queries:u1",
		Defaults: Defaults{OrderByField: "created_at", OrderByReverse: true},
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	assert.True(t, storage.Load().Equal(Defaults{OrderByField: "created_at", OrderByReverse: true}.State()))

	state := State{Page: 4, ItemsPerPage: 50, OrderByField: "name", SearchTerm: "kpi", SelectedTags: []string{"ops"}}
	require.NoError(t, storage.Save(state))
	assert.Equal(t, time.Hour, client.ttl)
	assert.True(t, storage.Load().Equal(state))
}

func TestRedisStateStorageFallsBackOnError(t *testing.T) {
	client := newStubRedis()
	client.getErr = errors.New("connection refused")
	storage, err := NewRedisStateStorage(RedisStateStorageOptions{Client: client, Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultItemsPerPage, storage.Load().ItemsPerPage)

	client.setErr = errors.New("read only replica")
	assert.Error(t, storage.Save(State{Page: 1, ItemsPerPage: 10}))
}

func TestNewRedisStateStorageValidates(t *testing.T) {
	_, err := NewRedisStateStorage(RedisStateStorageOptions{Key: "k"})
	assert.Error(t, err)
	_, err = NewRedisStateStorage(RedisStateStorageOptions{Client: newStubRedis()})
	assert.Error(t, err)
}

type stubRedis struct {
	data   map[string][]byte
	ttl    time.Duration
	getErr error
	setErr error
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string][]byte{}}
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	value, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(value), nil)
}

func (s *stubRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.setErr != nil {
		return redis.NewStatusResult("", s.setErr)
	}
	switch v := value.(type) {
	case []byte:
		s.data[key] = v
	default:
		data, _ := json.Marshal(v)
		s.data[key] = data
	}
	s.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}
