package queryeditor

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-redash/components/config"
	"github.com/goliatone/go-redash/components/editing"
	"github.com/goliatone/go-redash/components/menu"
	"github.com/goliatone/go-redash/components/notify"
	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/goliatone/go-redash/pkg/redashtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend  *redashtest.Backend
	updater  *Updater
	recorder *notify.Recorder
	prompts  []string
	answer   bool
	events   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: redashtest.NewSeededBackend(), recorder: &notify.Recorder{}, answer: true}
	server := httptest.NewServer(redashtest.NewHandler(f.backend, redashtest.HandlerOptions{}))
	t.Cleanup(server.Close)
	client, err := redash.NewClient(redash.HTTPConfig{BaseURL: server.URL, MaxRetries: -1})
	require.NoError(t, err)
	f.updater, err = NewUpdater(Options{
		Service:  client,
		Notifier: f.recorder,
		Confirmer: menu.ConfirmFunc(func(_ context.Context, prompt string) bool {
			f.prompts = append(f.prompts, prompt)
			return f.answer
		}),
		Telemetry: telemetryFunc(func(event string) { f.events = append(f.events, event) }),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) query(t *testing.T, id int) editing.Fields {
	t.Helper()
	q, err := f.backend.Query(id)
	require.NoError(t, err)
	fields, err := FromQuery(q)
	require.NoError(t, err)
	return fields
}

func TestUpdateQueryPartial(t *testing.T) {
	f := newFixture(t)
	query := f.query(t, 10)

	updated, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"description": "Net of refunds"}, Messages{})
	require.True(t, outcome.Succeeded(), outcome.Err)
	assert.Equal(t, 2, updated.Version())
	assert.Equal(t, "Net of refunds", updated["description"])
	assert.Equal(t, query["query"], updated["query"])

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Notification{Level: notify.LevelSuccess, Message: MessageSaved}, last)
}

func TestUpdateQueryConflictOverwriteWhenEditable(t *testing.T) {
	f := newFixture(t)
	query := f.query(t, 10)
	_, err := f.backend.SaveQuery(map[string]any{"id": 10, "name": "Someone else"})
	require.NoError(t, err)

	updated, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"name": "Mine"}, Messages{})
	require.True(t, outcome.Succeeded(), outcome.Err)
	assert.Equal(t, []string{PromptOverwrite}, f.prompts)
	assert.Equal(t, 3, updated.Version())

	stored, _ := f.backend.Query(10)
	assert.Equal(t, "Mine", stored.Name)
}

func TestUpdateQueryConflictIsSticky(t *testing.T) {
	f := newFixture(t)
	query := f.query(t, 11)
	require.Equal(t, false, query["can_edit"])
	_, err := f.backend.SaveQuery(map[string]any{"id": 11, "name": "Someone else"})
	require.NoError(t, err)

	updated, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"name": "Mine"}, Messages{})
	assert.Equal(t, editing.OutcomeConflict, outcome.Kind)
	assert.True(t, redash.IsConflict(outcome.Err))
	assert.Empty(t, f.prompts)
	assert.Equal(t, "Mine", updated["name"])
	assert.Equal(t, 1, updated.Version())

	last, _ := f.recorder.Last()
	assert.Equal(t, notify.LevelError, last.Level)
	assert.True(t, last.Sticky)
}

func TestUpdateQueryDeclinedOverwrite(t *testing.T) {
	f := newFixture(t)
	f.answer = false
	query := f.query(t, 10)
	_, err := f.backend.SaveQuery(map[string]any{"id": 10, "name": "Someone else"})
	require.NoError(t, err)

	_, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"name": "Mine"}, Messages{})
	assert.Equal(t, editing.OutcomeConflict, outcome.Kind)
	stored, _ := f.backend.Query(10)
	assert.Equal(t, "Someone else", stored.Name)
}

func TestUpdateQueryGenericFailure(t *testing.T) {
	f := newFixture(t)
	query := editing.Fields{"id": 999, "version": 1, "name": "Ghost"}

	_, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"name": "Still ghost"}, Messages{})
	assert.Equal(t, editing.OutcomeFailure, outcome.Kind)
	last, _ := f.recorder.Last()
	assert.Equal(t, notify.Notification{Level: notify.LevelError, Message: MessageSaveFailed}, last)
}

func TestUpdateNewQueryPartialStaysLocal(t *testing.T) {
	f := newFixture(t)
	query := editing.Fields{"name": DefaultQueryName, "query": "", "is_draft": true}

	updated, outcome := f.updater.UpdateQuery(context.Background(), query, editing.Fields{"query": "select 1"}, Messages{})
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, "select 1", updated["query"])
	assert.False(t, updated.HasID())
	assert.Empty(t, f.recorder.Notifications())
}

func TestUpdateNewQueryFullSaveCreates(t *testing.T) {
	f := newFixture(t)
	query := editing.Fields{"name": DefaultQueryName, "query": "select 42", "is_draft": true, "can_edit": true}

	updated, outcome := f.updater.UpdateQuery(context.Background(), query, nil, Messages{})
	require.True(t, outcome.Succeeded(), outcome.Err)
	require.True(t, updated.HasID())
	assert.Equal(t, 1, updated.Version())
	assert.Equal(t, DefaultQueryName, updated["name"])

	stored, err := f.backend.Query(updated.ID())
	require.NoError(t, err)
	assert.Equal(t, "select 42", stored.Query)
}

func TestRenameQueryAutoPublishes(t *testing.T) {
	f := newFixture(t)
	query := f.query(t, 13)
	ctx := config.WithContext(context.Background(), config.New(config.Config{AutoPublishNamedQueries: true}, nil, nil))

	updated, outcome := f.updater.RenameQuery(ctx, query, "Orders by region")
	require.True(t, outcome.Succeeded(), outcome.Err)
	assert.Equal(t, false, updated["is_draft"])
	assert.Equal(t, "Orders by region", updated["name"])
	last, _ := f.recorder.Last()
	assert.Equal(t, MessageSavedPublished, last.Message)
	assert.Equal(t, []string{"edit_name"}, f.events)
}

func TestRenameQueryKeepsDraft(t *testing.T) {
	cases := map[string]struct {
		autoPublish bool
		name        string
	}{
		"flag off":     {autoPublish: false, name: "Orders by region"},
		"default name": {autoPublish: true, name: DefaultQueryName},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			query := f.query(t, 13)
			ctx := config.WithContext(context.Background(), config.New(config.Config{AutoPublishNamedQueries: tc.autoPublish}, nil, nil))

			updated, outcome := f.updater.RenameQuery(ctx, query, tc.name)
			require.True(t, outcome.Succeeded(), outcome.Err)
			assert.Equal(t, true, updated["is_draft"])
			assert.Empty(t, f.recorder.Notifications())
		})
	}
}

func TestArchiveQuery(t *testing.T) {
	f := newFixture(t)
	query := f.query(t, 10).Merge(editing.Fields{"schedule": map[string]any{"interval": 3600}})

	archived, err := f.updater.ArchiveQuery(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, true, archived["is_archived"])
	assert.Nil(t, archived["schedule"])
	assert.Equal(t, []string{PromptArchive}, f.prompts)
	assert.NotNil(t, query["schedule"])

	stored, _ := f.backend.Query(10)
	assert.True(t, stored.IsArchived)
}

func TestArchiveQueryDeclinedAndFailure(t *testing.T) {
	f := newFixture(t)
	f.answer = false
	_, err := f.updater.ArchiveQuery(context.Background(), f.query(t, 10))
	assert.ErrorIs(t, err, ErrArchiveDeclined)

	f.answer = true
	_, err = f.updater.ArchiveQuery(context.Background(), editing.Fields{"id": 999})
	assert.True(t, redash.IsNotFound(err))
	last, _ := f.recorder.Last()
	assert.Equal(t, MessageArchiveFailed, last.Message)
}

func TestNewUpdaterRequiresService(t *testing.T) {
	_, err := NewUpdater(Options{})
	assert.ErrorIs(t, err, ErrMissingService)
}

type telemetryFunc func(event string)

func (fn telemetryFunc) Record(_ context.Context, event string, _ map[string]any) { fn(event) }
