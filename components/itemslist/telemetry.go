package itemslist

import "context"

// Telemetry records list controller events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// ErrorHandler receives fetch failures. It is called without controller locks held.
type ErrorHandler func(err error)

func noopErrorHandler(error) {}
