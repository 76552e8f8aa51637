package buslog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	buspkg "github.com/sat8bit/roundtable/bus"
)

func TestBusHandler_Enabled_Respects_Configured_Level(t *testing.T) {
	req := require.New(t)
	h := NewBusHandler(buspkg.NewMemoryBus(), slog.LevelWarn)

	req.False(h.Enabled(context.Background(), slog.LevelDebug))
	req.False(h.Enabled(context.Background(), slog.LevelInfo))
	req.True(h.Enabled(context.Background(), slog.LevelWarn))
	req.True(h.Enabled(context.Background(), slog.LevelError))
}

func TestBusHandler_Logger_Skips_Records_Below_Level(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	ch := b.Subscribe()
	logger := slog.New(NewBusHandler(b, slog.LevelWarn))

	logger.Info("숨겨질 메시지")
	logger.Warn("보여질 메시지")

	var events []*buspkg.Event
	for {
		select {
		case e := <-ch:
			events = append(events, e)
			continue
		default:
		}
		break
	}
	req.Len(events, 1)
	req.Equal(buspkg.EventLog, events[0].Kind)
	req.Equal("WARN", events[0].Meta["level"])
	req.Contains(events[0].Meta["msg"], "보여질 메시지")
}
