package audit

import (
	"log/slog"
)

// SlogTrail forwards onboarding events to a slog.Logger, for development
// setups where a separate trail file is not wanted.
type SlogTrail struct {
	logger *slog.Logger
}

// NewSlogTrail creates a SlogTrail over the given logger.
// A nil logger yields a trail that discards everything.
func NewSlogTrail(logger *slog.Logger) *SlogTrail {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SlogTrail{logger: logger}
}

// Record logs the event at info level.
func (t *SlogTrail) Record(event Event) {
	attrs := []any{
		"attempt", event.AttemptID,
		"kind", event.Kind.String(),
	}
	if event.Step != "" {
		attrs = append(attrs, "step", event.Step)
	}
	if event.Host != "" {
		attrs = append(attrs, "host", event.Host)
	}
	if event.SerialNumber != "" {
		attrs = append(attrs, "serial", event.SerialNumber)
	}
	if event.ErrorCode != "" {
		attrs = append(attrs, "code", event.ErrorCode)
	}
	if event.AbortReason != "" {
		attrs = append(attrs, "reason", event.AbortReason)
	}

	t.logger.Info("onboarding event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Trail = (*SlogTrail)(nil)
