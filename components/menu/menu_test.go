package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelVisibleSkipsHidden(t *testing.T) {
	m := New(
		Item{ID: "mute", Label: "Mute notifications"},
		Item{ID: "unmute", Label: "Unmute notifications", State: Hidden},
		Item{ID: "delete", Label: "Delete", State: Disabled},
	)
	visible := m.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "mute", visible[0].ID)
	assert.Equal(t, "delete", visible[1].ID)
	assert.Len(t, m.Items(), 3)
}

func TestModelDispatch(t *testing.T) {
	var ran []string
	action := func(id string) Action {
		return func(context.Context) error {
			ran = append(ran, id)
			return nil
		}
	}
	m := New(
		Item{ID: "mute", Action: action("mute")},
		Item{ID: "secret", State: Hidden, Action: action("secret")},
		Item{ID: "locked", State: Disabled, Action: action("locked")},
		Item{ID: "delete", Confirm: "Are you sure?", Action: action("delete")},
	)
	ctx := context.Background()

	require.NoError(t, m.Dispatch(ctx, "mute", nil))
	assert.ErrorIs(t, m.Dispatch(ctx, "missing", nil), ErrUnknownItem)
	assert.ErrorIs(t, m.Dispatch(ctx, "secret", nil), ErrUnknownItem)
	assert.ErrorIs(t, m.Dispatch(ctx, "locked", nil), ErrItemDisabled)
	assert.ErrorIs(t, m.Dispatch(ctx, "delete", nil), ErrDeclined)
	assert.ErrorIs(t, m.Dispatch(ctx, "delete", ConfirmFunc(func(context.Context, string) bool { return false })), ErrDeclined)

	var prompt string
	require.NoError(t, m.Dispatch(ctx, "delete", ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return true
	})))
	assert.Equal(t, "Are you sure?", prompt)
	assert.Equal(t, []string{"mute", "delete"}, ran)
}

func TestModelDispatchPropagatesActionError(t *testing.T) {
	boom := errors.New("boom")
	m := New(Item{ID: "x", Action: func(context.Context) error { return boom }})
	assert.ErrorIs(t, m.Dispatch(context.Background(), "x", nil), boom)
}

func TestModelWithStateIsCopy(t *testing.T) {
	m := New(Item{ID: "a"})
	changed := m.WithState("a", Disabled)
	item, _ := m.Lookup("a")
	assert.Equal(t, Enabled, item.State)
	item, _ = changed.Lookup("a")
	assert.Equal(t, Disabled, item.State)
	assert.Equal(t, "disabled", item.State.String())
}
