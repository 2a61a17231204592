package editing

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrMissingSaver        = errors.New("editing: saver is required")
	ErrSaveInProgress      = errors.New("editing: save already in progress")
	ErrNoConflict          = errors.New("editing: no conflict to resolve")
	ErrOverwriteNotAllowed = errors.New("editing: overwrite not allowed")
	// ErrConflict is the default conflict marker recognised by a session.
	ErrConflict = errors.New("editing: version conflict")
)

const (
	conflictMessage = "Changes not saved: the resource was modified by someone else. Copy your changes and reload to continue."
	failureMessage  = "Changes could not be saved."
)

// Saver persists a change-set and returns the server representation.
type Saver interface {
	Save(ctx context.Context, changes Fields) (Fields, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, changes Fields) (Fields, error)

func (fn SaverFunc) Save(ctx context.Context, changes Fields) (Fields, error) {
	return fn(ctx, changes)
}

// Confirmer asks the user whether a conflicting save should overwrite the server copy.
type Confirmer interface {
	ConfirmOverwrite(ctx context.Context) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context) bool

func (fn ConfirmFunc) ConfirmOverwrite(ctx context.Context) bool { return fn(ctx) }

// ConflictDetector reports whether a save error is a version conflict.
type ConflictDetector func(err error) bool

// OutcomeKind classifies a save attempt.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeConflict OutcomeKind = "conflict"
	OutcomeFailure  OutcomeKind = "failure"
)

// SaveOutcome is the result of Save or ResolveConflict. Resource is the local copy after
// the attempt; on conflict and failure it still carries the unsaved edits.
type SaveOutcome struct {
	Kind     OutcomeKind
	Resource Fields
	Message  string
	Err      error
}

// Succeeded reports whether the outcome is a success.
func (o SaveOutcome) Succeeded() bool { return o.Kind == OutcomeSuccess }

// SessionOptions configures a Session.
type SessionOptions struct {
	Saver Saver
	// Confirmer is consulted on conflict when CanOverwrite is set. Without one the
	// session stays in StatusConflict until ResolveConflict is called.
	Confirmer    Confirmer
	CanOverwrite bool
	IsConflict   ConflictDetector
	Logger       zerolog.Logger
}

// Session tracks local edits to one resource and saves them optimistically.
type Session struct {
	opts SessionOptions

	mu    sync.Mutex
	state sessionState
}

// NewSession starts a clean session over resource.
func NewSession(resource Fields, opts SessionOptions) (*Session, error) {
	if opts.Saver == nil {
		return nil, ErrMissingSaver
	}
	if opts.IsConflict == nil {
		opts.IsConflict = func(err error) bool { return errors.Is(err, ErrConflict) }
	}
	return &Session{
		opts: opts,
		state: sessionState{
			status:  StatusClean,
			current: resource.Clone(),
			edits:   Fields{},
		},
	}, nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.status
}

// Current returns the local copy including unsaved edits.
func (s *Session) Current() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.current.Clone()
}

// Edits returns the fields changed since the last successful save.
func (s *Session) Edits() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.edits.Clone()
}

// Set records a single field edit.
func (s *Session) Set(key string, value any) {
	s.SetFields(Fields{key: value})
}

// SetFields records several edits at once.
func (s *Session) SetFields(fields Fields) {
	s.dispatch(event{kind: eventSet, fields: fields.Clone()})
}

// Save sends the pending edits. Only edited fields travel, together with id and
// version; resources without an id are sent whole.
func (s *Session) Save(ctx context.Context) SaveOutcome {
	s.mu.Lock()
	switch s.state.status {
	case StatusSaving:
		s.mu.Unlock()
		return s.failure(ErrSaveInProgress)
	case StatusConflict:
		s.mu.Unlock()
		return s.conflict(ErrConflict)
	}
	current := s.state.current
	changeSet := buildChangeSet(current, s.state.edits)
	if current.HasID() && len(s.state.edits) == 0 {
		s.mu.Unlock()
		return SaveOutcome{Kind: OutcomeSuccess, Resource: current.Clone()}
	}
	s.state = reduce(s.state, event{kind: eventSaveStarted, changeSet: changeSet})
	s.mu.Unlock()

	return s.send(ctx, changeSet)
}

// ResolveConflict settles a session in StatusConflict. Declining returns to
// StatusDirty with edits intact; overwriting resends the change-set without its
// version, which the backend treats as an unconditional write.
func (s *Session) ResolveConflict(ctx context.Context, overwrite bool) SaveOutcome {
	s.mu.Lock()
	if s.state.status != StatusConflict {
		s.mu.Unlock()
		return s.failure(ErrNoConflict)
	}
	if !overwrite {
		s.state = reduce(s.state, event{kind: eventOverwriteDeclined})
		s.mu.Unlock()
		return s.conflict(ErrConflict)
	}
	if !s.opts.CanOverwrite {
		s.mu.Unlock()
		return s.conflict(ErrOverwriteNotAllowed)
	}
	s.state = reduce(s.state, event{kind: eventOverwriteConfirmed})
	changeSet := s.state.inFlight.Clone()
	s.mu.Unlock()

	s.opts.Logger.Info().Int("id", changeSet.ID()).Msg("overwriting after version conflict")
	return s.send(ctx, changeSet)
}

func (s *Session) send(ctx context.Context, changeSet Fields) SaveOutcome {
	response, err := s.opts.Saver.Save(ctx, changeSet.Clone())
	if err == nil {
		s.dispatch(event{kind: eventSaveSucceeded, fields: response})
		return SaveOutcome{Kind: OutcomeSuccess, Resource: s.Current()}
	}

	if !s.opts.IsConflict(err) {
		s.opts.Logger.Warn().Err(err).Int("id", changeSet.ID()).Msg("save failed")
		s.dispatch(event{kind: eventSaveFailed})
		return s.failure(err)
	}

	s.opts.Logger.Info().Int("id", changeSet.ID()).Int("version", changeSet.Version()).Msg("version conflict")
	s.dispatch(event{kind: eventSaveConflicted})
	if !s.opts.CanOverwrite || s.opts.Confirmer == nil {
		return s.conflict(err)
	}
	if !s.opts.Confirmer.ConfirmOverwrite(ctx) {
		s.dispatch(event{kind: eventOverwriteDeclined})
		return s.conflict(err)
	}
	return s.ResolveConflict(ctx, true)
}

func (s *Session) dispatch(ev event) {
	s.mu.Lock()
	s.state = reduce(s.state, ev)
	s.mu.Unlock()
}

func (s *Session) conflict(err error) SaveOutcome {
	return SaveOutcome{Kind: OutcomeConflict, Resource: s.Current(), Message: conflictMessage, Err: err}
}

func (s *Session) failure(err error) SaveOutcome {
	return SaveOutcome{Kind: OutcomeFailure, Resource: s.Current(), Message: failureMessage, Err: err}
}

func buildChangeSet(current, edits Fields) Fields {
	if !current.HasID() {
		return current.Clone()
	}
	changeSet := current.Pick(edits.Keys()...)
	changeSet[FieldID] = current[FieldID]
	if v, ok := current[FieldVersion]; ok {
		changeSet[FieldVersion] = v
	}
	return changeSet
}
