package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

type muteService interface {
	MuteAlert(ctx context.Context, id int) error
	UnmuteAlert(ctx context.Context, id int) error
}

// SetAlertMutedInput mutes or restores the notifications of an alert.
type SetAlertMutedInput struct {
	ID    int
	Muted bool
}

// SetAlertMutedCommand toggles alert notifications.
type SetAlertMutedCommand struct {
	service   muteService
	telemetry Telemetry
}

// NewSetAlertMutedCommand creates a command instance.
func NewSetAlertMutedCommand(service muteService, telemetry Telemetry) *SetAlertMutedCommand {
	return &SetAlertMutedCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetAlertMutedInput] = (*SetAlertMutedCommand)(nil)

func (c *SetAlertMutedCommand) Execute(ctx context.Context, msg SetAlertMutedInput) error {
	if c.service == nil {
		return errors.New("set alert muted command requires service")
	}
	call := c.service.UnmuteAlert
	if msg.Muted {
		call = c.service.MuteAlert
	}
	if err := call(ctx, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "redash.alert.mute", map[string]any{
		"alert_id": msg.ID,
		"muted":    msg.Muted,
	})
	return nil
}
