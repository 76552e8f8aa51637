package buslog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sat8bit/roundtable/bus"
)

// BusHandler is a slog.Handler that republishes log records onto a bus.Bus
// so that subscribed sinks can show them alongside the discussion.
type BusHandler struct {
	bus   bus.Bus
	level slog.Level
}

// NewBusHandler creates a new BusHandler that drops records below level.
func NewBusHandler(b bus.Bus, level slog.Level) *BusHandler {
	return &BusHandler{bus: b, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *BusHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle broadcasts the log message to the bus.
func (h *BusHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.bus.Publish(&bus.Event{
		Kind: bus.EventLog,
		Meta: map[string]string{
			"level": r.Level.String(),
			"msg":   fmt.Sprintf("[%s] %s", r.Level, r.Message),
		},
		At: time.Now(),
	})
}

// WithAttrs returns a new BusHandler whose attributes consist of
// the handler's attributes followed by attrs.
func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BusHandler{bus: h.bus, level: h.level}
}

// WithGroup returns a new BusHandler with the given group name.
func (h *BusHandler) WithGroup(name string) slog.Handler {
	return &BusHandler{bus: h.bus, level: h.level}
}

var _ slog.Handler = (*BusHandler)(nil)
