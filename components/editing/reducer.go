package editing

// Status is the lifecycle state of an edit session.
type Status string

const (
	StatusClean    Status = "clean"
	StatusDirty    Status = "dirty"
	StatusSaving   Status = "saving"
	StatusConflict Status = "conflict"
)

type sessionState struct {
	status  Status
	current Fields
	edits   Fields
	// inFlight is the change-set of the pending or conflicting save.
	inFlight Fields
}

type eventKind int

const (
	eventSet eventKind = iota
	eventSaveStarted
	eventSaveSucceeded
	eventSaveConflicted
	eventSaveFailed
	eventOverwriteConfirmed
	eventOverwriteDeclined
)

type event struct {
	kind      eventKind
	fields    Fields
	changeSet Fields
}

// reduce returns the next session state. It never mutates s.
func reduce(s sessionState, ev event) sessionState {
	next := sessionState{
		status:   s.status,
		current:  s.current,
		edits:    s.edits,
		inFlight: s.inFlight,
	}
	switch ev.kind {
	case eventSet:
		if len(ev.fields) == 0 {
			return next
		}
		next.current = s.current.Merge(ev.fields)
		next.edits = s.edits.Merge(ev.fields)
		if s.status == StatusClean {
			next.status = StatusDirty
		}

	case eventSaveStarted:
		next.status = StatusSaving
		next.inFlight = ev.changeSet.Clone()

	case eventSaveSucceeded:
		next.edits = settleEdits(s.edits, s.inFlight)
		next.current = mergeResponse(s.current, ev.fields, s.inFlight, next.edits)
		next.inFlight = nil
		if len(next.edits) > 0 {
			next.status = StatusDirty
		} else {
			next.status = StatusClean
		}

	case eventSaveConflicted:
		next.status = StatusConflict

	case eventOverwriteConfirmed:
		next.status = StatusSaving
		next.inFlight = s.inFlight.Omit(FieldVersion)

	case eventSaveFailed, eventOverwriteDeclined:
		next.inFlight = nil
		if len(s.edits) > 0 {
			next.status = StatusDirty
		} else {
			next.status = StatusClean
		}
	}
	return next
}

// mergeResponse applies a successful server response. The server wins for id, version
// and every field the change-set did not carry, except fields still holding unsaved
// edits. A different id replaces the copy and keeps only the pending edits.
func mergeResponse(current, response, changeSet, pending Fields) Fields {
	if len(response) == 0 {
		return current.Clone()
	}
	if current.HasID() && response.HasID() && response.ID() != current.ID() {
		return response.Merge(pending.Omit(FieldID, FieldVersion))
	}
	out := current.Clone()
	for key, value := range response {
		if key == FieldID || key == FieldVersion {
			out[key] = cloneValue(value)
			continue
		}
		_, sent := changeSet[key]
		_, unsaved := pending[key]
		if !sent && !unsaved {
			out[key] = cloneValue(value)
		}
	}
	return out
}

// settleEdits drops edits that were saved unchanged. Edits made while the save was in
// flight survive.
func settleEdits(edits, changeSet Fields) Fields {
	out := Fields{}
	for key, value := range edits {
		if sent, ok := changeSet[key]; ok && valuesEqual(sent, value) {
			continue
		}
		out[key] = cloneValue(value)
	}
	return out
}
