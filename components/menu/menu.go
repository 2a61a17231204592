package menu

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownItem  = errors.New("menu: unknown item")
	ErrItemDisabled = errors.New("menu: item disabled")
	ErrDeclined     = errors.New("menu: action declined")
)

// ItemState is how an item is offered to the user.
type ItemState int

const (
	Enabled ItemState = iota
	Disabled
	Hidden
)

func (s ItemState) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case Hidden:
		return "hidden"
	}
	return fmt.Sprintf("ItemState(%d)", int(s))
}

// Action runs when an item is picked.
type Action func(ctx context.Context) error

// Item is one menu entry. A non-empty Confirm asks before running Action.
type Item struct {
	ID      string
	Label   string
	State   ItemState
	Confirm string
	Action  Action
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (fn ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return fn(ctx, prompt) }

// Model is an ordered, immutable list of items.
type Model struct {
	items []Item
}

// New builds a model from items in display order.
func New(items ...Item) Model {
	return Model{items: append([]Item(nil), items...)}
}

// Items returns every item, hidden ones included.
func (m Model) Items() []Item {
	return append([]Item(nil), m.items...)
}

// Visible returns the items a renderer should draw.
func (m Model) Visible() []Item {
	out := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		if item.State != Hidden {
			out = append(out, item)
		}
	}
	return out
}

// Lookup finds an item by id.
func (m Model) Lookup(id string) (Item, bool) {
	for _, item := range m.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// WithState returns a copy of the model with the state of one item replaced.
func (m Model) WithState(id string, state ItemState) Model {
	items := m.Items()
	for i := range items {
		if items[i].ID == id {
			items[i].State = state
		}
	}
	return Model{items: items}
}

// Dispatch runs the action of item id. Hidden items are treated as unknown. Items
// with a Confirm prompt need an approving confirmer.
func (m Model) Dispatch(ctx context.Context, id string, confirmer Confirmer) error {
	item, ok := m.Lookup(id)
	if !ok || item.State == Hidden {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if item.State == Disabled {
		return fmt.Errorf("%w: %s", ErrItemDisabled, id)
	}
	if item.Confirm != "" && (confirmer == nil || !confirmer.Confirm(ctx, item.Confirm)) {
		return ErrDeclined
	}
	if item.Action == nil {
		return nil
	}
	return item.Action(ctx)
}
