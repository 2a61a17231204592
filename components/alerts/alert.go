package alerts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-redash/pkg/redash"
)

// DefaultAlertName is used when an alert has no query to derive a name from.
const DefaultAlertName = "New Alert"

// QueryRef identifies the query an alert watches. A zero ID means none selected.
type QueryRef struct {
	ID   int
	Name string
}

// Options is the trigger condition and notification template.
type Options struct {
	Column        string
	Op            string
	Value         any
	Muted         bool
	CustomSubject string
	CustomBody    string
}

// Alert is an immutable snapshot. Every With method returns a new value.
type Alert struct {
	ID      int
	Name    string
	Options Options
	Query   QueryRef
	// Rearm is 0 to notify once, 1 to notify on each evaluation, or the minimum
	// number of seconds between notifications.
	Rearm int
	State string
}

// NewAlert returns the defaults of an alert being created.
func NewAlert() Alert {
	return Alert{Options: Options{Op: ">", Value: 1, Muted: false}}
}

func (a Alert) WithName(name string) Alert {
	a.Name = name
	return a
}

// WithCriteria sets the trigger condition.
func (a Alert) WithCriteria(column, op string, value any) Alert {
	a.Options.Column = column
	a.Options.Op = op
	a.Options.Value = value
	return a
}

func (a Alert) WithColumn(column string) Alert {
	a.Options.Column = column
	return a
}

func (a Alert) WithMuted(muted bool) Alert {
	a.Options.Muted = muted
	return a
}

// WithTemplate sets the custom notification subject and body.
func (a Alert) WithTemplate(subject, body string) Alert {
	a.Options.CustomSubject = subject
	a.Options.CustomBody = body
	return a
}

// WithQuery selects the watched query. When columns are known the column falls back
// to the first result column if unset or absent from the result.
func (a Alert) WithQuery(query QueryRef, columns []string) Alert {
	a.Query = query
	if columns != nil {
		a.Options.Column = DefaultColumn(a.Options.Column, columns)
	}
	return a
}

func (a Alert) WithRearm(rearm int) Alert {
	a.Rearm = max(rearm, 0)
	return a
}

// DefaultName derives a name from the query and condition.
func DefaultName(a Alert) string {
	if a.Query.ID == 0 {
		return DefaultAlertName
	}
	return fmt.Sprintf("%s: %s %s %v", a.Query.Name, a.Options.Column, a.Options.Op, a.Options.Value)
}

// DefaultColumn keeps current when it is one of columns, otherwise picks the first.
func DefaultColumn(current string, columns []string) string {
	if current != "" && slices.Contains(columns, current) {
		return current
	}
	if len(columns) == 0 {
		return current
	}
	return columns[0]
}

// prepareForSave fills in the default name.
func prepareForSave(a Alert) Alert {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		a.Name = DefaultName(a)
	}
	return a
}

func fromAPI(in redash.Alert) Alert {
	a := Alert{
		ID:   in.ID,
		Name: in.Name,
		Options: Options{
			Column:        in.Options.Column,
			Op:            in.Options.Op,
			Value:         in.Options.Value,
			Muted:         in.Options.Muted,
			CustomSubject: in.Options.CustomSubject,
			CustomBody:    in.Options.CustomBody,
		},
		State: in.State,
	}
	if in.Rearm != nil {
		a.Rearm = *in.Rearm
	}
	if in.Query != nil {
		a.Query = QueryRef{ID: in.Query.ID, Name: in.Query.Name}
	} else if in.QueryID != 0 {
		a.Query = QueryRef{ID: in.QueryID}
	}
	return a
}

func toAPI(a Alert) redash.Alert {
	out := redash.Alert{
		ID:      a.ID,
		Name:    a.Name,
		QueryID: a.Query.ID,
		Options: redash.AlertOptions{
			Column:        a.Options.Column,
			Op:            a.Options.Op,
			Value:         a.Options.Value,
			Muted:         a.Options.Muted,
			CustomSubject: a.Options.CustomSubject,
			CustomBody:    a.Options.CustomBody,
		},
	}
	// zero rearm travels as null
	if a.Rearm > 0 {
		rearm := a.Rearm
		out.Rearm = &rearm
	}
	return out
}
