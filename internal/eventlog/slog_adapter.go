package eventlog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at debug level, or at
// warning level for failures.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("op_id", event.OperationID),
		slog.String("session_id", event.SessionID),
		slog.String("kind", event.Kind.String()),
	}
	if event.Algorithm != "" {
		attrs = append(attrs, slog.String("algorithm", event.Algorithm))
	}
	if event.Core != "" {
		attrs = append(attrs, slog.String("core", event.Core))
	}
	switch event.Kind {
	case KindReadStarted, KindReadProgress, KindReadFailed, KindReadFinished:
		attrs = append(attrs,
			slog.Uint64("address", event.Address),
			slog.Int("size", event.Size),
		)
	}

	level := slog.LevelDebug
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "flash", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
