package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-redash/components/menu"
	"github.com/goliatone/go-redash/components/notify"
	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/rs/zerolog"
)

// Mode is how the editor presents the alert.
type Mode int

const (
	ModeNew Mode = iota
	ModeView
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeView:
		return "view"
	case ModeEdit:
		return "edit"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Menu item ids.
const (
	ItemMute   = "mute"
	ItemUnmute = "unmute"
	ItemDelete = "delete"
)

const (
	MessageCannotEdit   = "You cannot edit this alert. You do not have sufficient permissions to edit this alert, and have been redirected to the view-only page."
	MessageSaved        = "Saved."
	MessageSaveFailed   = "Failed saving alert."
	MessageDeleted      = "Alert deleted successfully."
	MessageDeleteFailed = "Failed deleting alert."
	MessageMuted        = "Notifications have been muted."
	MessageMuteFailed   = "Failed muting notifications."
	MessageUnmuted      = "Notifications have been restored."
	MessageUnmuteFailed = "Failed restoring notifications."
	PromptDelete        = "Are you sure you want to delete this alert?"
)

var (
	ErrMissingService = errors.New("alerts: alert service is required")
	ErrReadOnly       = errors.New("alerts: alert is read-only")
	ErrNotLoaded      = errors.New("alerts: no alert loaded")
)

// Service is the backend surface the editor needs. *redash.Client implements it.
type Service interface {
	GetAlert(ctx context.Context, id int) (redash.Alert, error)
	SaveAlert(ctx context.Context, alert redash.Alert) (redash.Alert, error)
	DeleteAlert(ctx context.Context, id int) error
	MuteAlert(ctx context.Context, id int) error
	UnmuteAlert(ctx context.Context, id int) error
	QueryResultColumns(ctx context.Context, queryID int) ([]redash.Column, error)
}

// EditorOptions configures an Editor.
type EditorOptions struct {
	Service  Service
	Notifier notify.Notifier
	// Confirmer approves destructive menu actions.
	Confirmer menu.Confirmer
	// CanEdit decides whether the viewer may change a loaded alert. Nil allows all.
	CanEdit func(redash.Alert) bool
	Logger  zerolog.Logger
}

// Editor owns one alert page: the snapshot, the display mode and the edit permission.
type Editor struct {
	opts EditorOptions

	mu      sync.RWMutex
	alert   Alert
	loaded  bool
	mode    Mode
	canEdit bool
	columns []string
}

// NewEditor validates options.
func NewEditor(opts EditorOptions) (*Editor, error) {
	if opts.Service == nil {
		return nil, ErrMissingService
	}
	opts.Notifier = notify.Normalize(opts.Notifier)
	if opts.CanEdit == nil {
		opts.CanEdit = func(redash.Alert) bool { return true }
	}
	return &Editor{opts: opts}, nil
}

// StartNew resets the editor to a new alert with default options.
func (e *Editor) StartNew() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alert = NewAlert()
	e.loaded = true
	e.mode = ModeNew
	e.canEdit = true
	e.columns = nil
}

// Open loads an alert in mode. Viewers who cannot edit are forced into ModeView and
// warned with a sticky notification.
func (e *Editor) Open(ctx context.Context, id int, mode Mode) error {
	remote, err := e.opts.Service.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	canEdit := e.opts.CanEdit(remote)
	if !canEdit {
		mode = ModeView
		e.opts.Notifier.Warn(ctx, MessageCannotEdit, notify.Options{Sticky: true})
	}
	e.mu.Lock()
	e.alert = fromAPI(remote)
	e.loaded = true
	e.mode = mode
	e.canEdit = canEdit
	e.mu.Unlock()

	if query := e.Alert().Query; query.ID != 0 {
		e.SelectQuery(ctx, query)
	}
	return nil
}

// Alert returns the current snapshot.
func (e *Editor) Alert() Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alert
}

func (e *Editor) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

func (e *Editor) CanEdit() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canEdit
}

// Columns returns the result columns of the selected query.
func (e *Editor) Columns() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.columns...)
}

// Apply replaces the snapshot with fn(snapshot).
func (e *Editor) Apply(fn func(Alert) Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alert = fn(e.alert)
}

// SelectQuery switches the watched query and loads its result columns to pick a
// default column. Column loading failures leave the column untouched.
func (e *Editor) SelectQuery(ctx context.Context, query QueryRef) {
	e.mu.Lock()
	e.alert = e.alert.WithQuery(query, nil)
	e.columns = nil
	e.mu.Unlock()
	if query.ID == 0 {
		return
	}

	cols, err := e.opts.Service.QueryResultColumns(ctx, query.ID)
	if err != nil {
		e.opts.Logger.Debug().Err(err).Int("query_id", query.ID).Msg("load result columns")
		return
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alert.Query.ID != query.ID {
		return
	}
	e.columns = names
	e.alert = e.alert.WithQuery(query, names)
}

// Edit switches to ModeEdit.
func (e *Editor) Edit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canEdit {
		return ErrReadOnly
	}
	e.mode = ModeEdit
	return nil
}

// Cancel leaves ModeEdit.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == ModeEdit {
		e.mode = ModeView
	}
}

// Save validates and stores the alert, then shows it in ModeView.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.RLock()
	alert, loaded, canEdit := e.alert, e.loaded, e.canEdit
	e.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}
	if !canEdit {
		return ErrReadOnly
	}
	alert = prepareForSave(alert)
	if err := ValidateOptions(alert.Options); err != nil {
		e.opts.Notifier.Error(ctx, MessageSaveFailed, notify.Options{})
		return err
	}
	saved, err := e.opts.Service.SaveAlert(ctx, toAPI(alert))
	if err != nil {
		e.opts.Logger.Warn().Err(err).Int("id", alert.ID).Msg("save alert failed")
		e.opts.Notifier.Error(ctx, MessageSaveFailed, notify.Options{})
		return err
	}
	next := fromAPI(saved)
	if next.Query.Name == "" {
		next.Query.Name = alert.Query.Name
	}
	e.mu.Lock()
	e.alert = next
	e.mode = ModeView
	e.mu.Unlock()
	e.opts.Notifier.Success(ctx, MessageSaved, notify.Options{})
	return nil
}

// Mute silences notifications.
func (e *Editor) Mute(ctx context.Context) error {
	return e.setMuted(ctx, true)
}

// Unmute restores notifications.
func (e *Editor) Unmute(ctx context.Context) error {
	return e.setMuted(ctx, false)
}

func (e *Editor) setMuted(ctx context.Context, muted bool) error {
	id, err := e.writableID()
	if err != nil {
		return err
	}
	call, ok, fail := e.opts.Service.UnmuteAlert, MessageUnmuted, MessageUnmuteFailed
	if muted {
		call, ok, fail = e.opts.Service.MuteAlert, MessageMuted, MessageMuteFailed
	}
	if err := call(ctx, id); err != nil {
		e.opts.Notifier.Error(ctx, fail, notify.Options{})
		return err
	}
	e.Apply(func(a Alert) Alert { return a.WithMuted(muted) })
	if muted {
		e.opts.Notifier.Warn(ctx, ok, notify.Options{})
	} else {
		e.opts.Notifier.Success(ctx, ok, notify.Options{})
	}
	return nil
}

// Delete removes the alert.
func (e *Editor) Delete(ctx context.Context) error {
	id, err := e.writableID()
	if err != nil {
		return err
	}
	if err := e.opts.Service.DeleteAlert(ctx, id); err != nil {
		e.opts.Notifier.Error(ctx, MessageDeleteFailed, notify.Options{})
		return err
	}
	e.mu.Lock()
	e.loaded = false
	e.mu.Unlock()
	e.opts.Notifier.Success(ctx, MessageDeleted, notify.Options{})
	return nil
}

// writableID returns the id of the loaded alert when the viewer may change it.
func (e *Editor) writableID() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.loaded {
		return 0, ErrNotLoaded
	}
	if !e.canEdit {
		return 0, ErrReadOnly
	}
	return e.alert.ID, nil
}

// Menu returns the actions menu. Exactly one of mute and unmute is visible; every
// item is disabled for viewers who cannot edit.
func (e *Editor) Menu() menu.Model {
	e.mu.RLock()
	muted, canEdit := e.alert.Options.Muted, e.canEdit
	e.mu.RUnlock()

	state := menu.Enabled
	if !canEdit {
		state = menu.Disabled
	}
	muteState, unmuteState := state, menu.Hidden
	if muted {
		muteState, unmuteState = menu.Hidden, state
	}
	return menu.New(
		menu.Item{ID: ItemMute, Label: "Mute Notifications", State: muteState, Action: e.Mute},
		menu.Item{ID: ItemUnmute, Label: "Unmute Notifications", State: unmuteState, Action: e.Unmute},
		menu.Item{ID: ItemDelete, Label: "Delete Alert", State: state, Confirm: PromptDelete, Action: e.Delete},
	)
}

// Dispatch runs a menu item with the configured confirmer.
func (e *Editor) Dispatch(ctx context.Context, id string) error {
	return e.Menu().Dispatch(ctx, id, e.opts.Confirmer)
}
