package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.DeviceTarget != "" {
		attrs = append(attrs, slog.String("device_target", event.DeviceTarget))
	}

	switch {
	case event.Message != nil:
		attrs = append(attrs, slog.String("method", event.Message.Method))
		if event.Message.Target != "" {
			attrs = append(attrs, slog.String("target", event.Message.Target))
		}
		if event.Message.SearchTarget != "" {
			attrs = append(attrs, slog.String("st", event.Message.SearchTarget))
		}
		if event.Message.Command != "" {
			attrs = append(attrs, slog.String("cmd", event.Message.Command))
		}
		if event.Message.StatusCode != 0 {
			attrs = append(attrs, slog.Int("status", event.Message.StatusCode))
		}
		if event.Message.Result != "" {
			attrs = append(attrs, slog.String("result", event.Message.Result))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
