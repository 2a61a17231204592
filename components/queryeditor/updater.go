package queryeditor

import (
	"context"
	"errors"

	"github.com/goliatone/go-redash/components/config"
	"github.com/goliatone/go-redash/components/editing"
	"github.com/goliatone/go-redash/components/menu"
	"github.com/goliatone/go-redash/components/notify"
	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/rs/zerolog"
)

// DefaultQueryName is the name given to queries that were never renamed.
const DefaultQueryName = "New Query"

// SaveableFields are sent when a query is saved as a whole.
var SaveableFields = []string{
	"id",
	"version",
	"schedule",
	"query",
	"description",
	"name",
	"data_source_id",
	"options",
	"latest_query_data_id",
	"is_draft",
}

const (
	MessageSaved          = "Query saved"
	MessageSavedPublished = "Query saved and published"
	MessageSaveFailed     = "Query could not be saved."
	MessageArchiveFailed  = "Query could not be archived."
	PromptOverwrite       = "This query was changed by another user. Are you sure you want to overwrite it?"
	PromptArchive         = "Are you sure you want to archive this query? All alerts and dashboard widgets created with its visualizations will be deleted."
)

var (
	ErrMissingService  = errors.New("queryeditor: query service is required")
	ErrArchiveDeclined = errors.New("queryeditor: archive declined")
)

// QueryService is the backend surface the updater needs. *redash.Client implements it.
type QueryService interface {
	SaveQuery(ctx context.Context, fields map[string]any) (map[string]any, error)
	ArchiveQuery(ctx context.Context, id int) error
}

// Telemetry records user actions.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// Options configures an Updater.
type Options struct {
	Service  QueryService
	Notifier notify.Notifier
	// Confirmer answers both the overwrite and the archive prompts.
	Confirmer menu.Confirmer
	Telemetry Telemetry
	Logger    zerolog.Logger
}

// Messages override the notification texts of one update. A nil SuccessMessage keeps
// the default; an empty one suppresses the success notification.
type Messages struct {
	SuccessMessage *string
}

// Updater saves, renames and archives queries.
type Updater struct {
	opts Options
}

// NewUpdater validates options.
func NewUpdater(opts Options) (*Updater, error) {
	if opts.Service == nil {
		return nil, ErrMissingService
	}
	opts.Notifier = notify.Normalize(opts.Notifier)
	if opts.Telemetry == nil {
		opts.Telemetry = noopTelemetry{}
	}
	return &Updater{opts: opts}, nil
}

// UpdateQuery saves changes to query. With nil changes the whole saveable field set
// is sent. Queries that were never saved only absorb the changes locally. The
// returned fields are the query after the attempt; on failure they still hold the
// unsaved edits.
func (u *Updater) UpdateQuery(ctx context.Context, query editing.Fields, changes editing.Fields, msgs Messages) (editing.Fields, editing.SaveOutcome) {
	if changes != nil && !query.HasID() {
		merged := query.Merge(changes)
		return merged, editing.SaveOutcome{Kind: editing.OutcomeSuccess, Resource: merged}
	}
	if changes == nil {
		changes = query.Pick(SaveableFields...).Omit(editing.FieldID, editing.FieldVersion)
	}

	// unsaved queries are sent with the saveable fields only
	base := query
	if !query.HasID() {
		base = query.Pick(SaveableFields...)
	}
	canEdit, _ := query["can_edit"].(bool)
	session, err := editing.NewSession(base, editing.SessionOptions{
		Saver:        editing.SaverFunc(u.save),
		Confirmer:    editing.ConfirmFunc(u.confirmOverwrite),
		CanOverwrite: canEdit,
		IsConflict:   redash.IsConflict,
		Logger:       u.opts.Logger,
	})
	if err != nil {
		return query, editing.SaveOutcome{Kind: editing.OutcomeFailure, Resource: query, Err: err}
	}
	session.SetFields(changes)
	outcome := session.Save(ctx)
	if !query.HasID() {
		outcome.Resource = query.Merge(outcome.Resource)
	}

	switch outcome.Kind {
	case editing.OutcomeSuccess:
		message := MessageSaved
		if msgs.SuccessMessage != nil {
			message = *msgs.SuccessMessage
		}
		if message != "" {
			u.opts.Notifier.Success(ctx, message, notify.Options{})
		}
	case editing.OutcomeConflict:
		u.opts.Notifier.Error(ctx, outcome.Message, notify.Options{Sticky: true})
	default:
		outcome.Message = MessageSaveFailed
		u.opts.Notifier.Error(ctx, MessageSaveFailed, notify.Options{})
	}
	return outcome.Resource, outcome
}

// RenameQuery changes the query name. Drafts are published at the same time when
// AutoPublishNamedQueries is enabled in the configuration carried by ctx and the new
// name is not the default one. Success is silent unless the query was published.
func (u *Updater) RenameQuery(ctx context.Context, query editing.Fields, name string) (editing.Fields, editing.SaveOutcome) {
	u.opts.Telemetry.Record(ctx, "edit_name", map[string]any{"object_type": "query", "object_id": query.ID()})

	changes := editing.Fields{"name": name}
	silent := ""
	msgs := Messages{SuccessMessage: &silent}

	cfg, _ := config.FromContext(ctx)
	isDraft, _ := query["is_draft"].(bool)
	if isDraft && cfg.AutoPublishNamedQueries && name != DefaultQueryName {
		changes["is_draft"] = false
		published := MessageSavedPublished
		msgs.SuccessMessage = &published
	}
	return u.UpdateQuery(ctx, query, changes, msgs)
}

// ArchiveQuery asks for confirmation, archives the query and returns the archived copy.
func (u *Updater) ArchiveQuery(ctx context.Context, query editing.Fields) (editing.Fields, error) {
	if u.opts.Confirmer == nil || !u.opts.Confirmer.Confirm(ctx, PromptArchive) {
		return query, ErrArchiveDeclined
	}
	if err := u.opts.Service.ArchiveQuery(ctx, query.ID()); err != nil {
		u.opts.Logger.Warn().Err(err).Int("id", query.ID()).Msg("archive query failed")
		u.opts.Notifier.Error(ctx, MessageArchiveFailed, notify.Options{})
		return query, err
	}
	u.opts.Telemetry.Record(ctx, "archive", map[string]any{"object_type": "query", "object_id": query.ID()})
	return query.Merge(editing.Fields{"is_archived": true, "schedule": nil}), nil
}

func (u *Updater) save(ctx context.Context, changes editing.Fields) (editing.Fields, error) {
	out, err := u.opts.Service.SaveQuery(ctx, changes)
	if err != nil {
		return nil, err
	}
	return editing.Fields(out), nil
}

func (u *Updater) confirmOverwrite(ctx context.Context) bool {
	return u.opts.Confirmer != nil && u.opts.Confirmer.Confirm(ctx, PromptOverwrite)
}

// FromQuery converts a typed query into fields.
func FromQuery(q redash.Query) (editing.Fields, error) {
	return editing.FieldsOf(q)
}

// ToQuery converts fields back into a typed query.
func ToQuery(fields editing.Fields) (redash.Query, error) {
	var q redash.Query
	err := fields.Decode(&q)
	return q, err
}
