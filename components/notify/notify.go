package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/rs/zerolog"
)

// Messages shown when an API error has no better description.
const (
	MessageNotFound  = "It seems like the page you're looking for cannot be found."
	MessageForbidden = "It seems like you don't have permission to see this page."
	MessageGeneric   = "It seems like we encountered an error. Try refreshing this page or contact your administrator."
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Options tweak how a notification is displayed. Sticky notifications stay until the
// user dismisses them.
type Options struct {
	Sticky bool
}

// Notifier surfaces non-blocking messages to the user.
type Notifier interface {
	Success(ctx context.Context, message string, opts Options)
	Warn(ctx context.Context, message string, opts Options)
	Error(ctx context.Context, message string, opts Options)
}

// LogNotifier writes notifications to a zerolog logger. It is the notifier of
// headless callers such as the CLI.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Success(_ context.Context, message string, opts Options) {
	n.Logger.Info().Bool("sticky", opts.Sticky).Msg(message)
}

func (n LogNotifier) Warn(_ context.Context, message string, opts Options) {
	n.Logger.Warn().Bool("sticky", opts.Sticky).Msg(message)
}

func (n LogNotifier) Error(_ context.Context, message string, opts Options) {
	n.Logger.Error().Bool("sticky", opts.Sticky).Msg(message)
}

// Notification is one recorded message.
type Notification struct {
	Level   Level
	Message string
	Sticky  bool
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Success(_ context.Context, message string, opts Options) {
	r.add(LevelSuccess, message, opts)
}

func (r *Recorder) Warn(_ context.Context, message string, opts Options) {
	r.add(LevelWarning, message, opts)
}

func (r *Recorder) Error(_ context.Context, message string, opts Options) {
	r.add(LevelError, message, opts)
}

// Notifications returns what was recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

func (r *Recorder) add(level Level, message string, opts Options) {
	r.mu.Lock()
	r.items = append(r.items, Notification{Level: level, Message: message, Sticky: opts.Sticky})
	r.mu.Unlock()
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Success(context.Context, string, Options) {}
func (Nop) Warn(context.Context, string, Options) {}
func (Nop) Error(context.Context, string, Options) {}

// Normalize returns n or Nop when n is nil.
func Normalize(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}

// FetchErrorHandler turns list fetch failures into error notifications. The returned
// function matches itemslist.ErrorHandler.
func FetchErrorHandler(n Notifier) func(error) {
	n = Normalize(n)
	return func(err error) {
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		n.Error(context.Background(), MessageFor(err), Options{})
	}
}

// MessageFor maps an error to the user-facing text shown in place of content.
func MessageFor(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case redash.IsNotFound(err):
		return MessageNotFound
	case redash.IsForbidden(err):
		return MessageForbidden
	}
	var apiErr *redash.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MessageGeneric
}
