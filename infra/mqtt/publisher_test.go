package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/planner"
	"github.com/kilianp07/vaxcal/core/schedule"
	"github.com/kilianp07/vaxcal/internal/eventbus"
)

func TestForwardPublishesCalendarChanges(t *testing.T) {
	bus := eventbus.NewTyped[planner.Event]()
	pub := NewMockPublisher()
	pub.FailSessions["broken"] = true
	ctx, cancel := context.WithCancel(context.Background())
	done := Forward(ctx, bus, pub, ForwardConfig{AckTimeout: time.Millisecond}, nil)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []schedule.EntryView{{Date: calendar.MustParse("2024-01-01")}}
	bus.Publish(planner.Event{Kind: planner.EventSelectionChanged, SessionID: "s1"})
	bus.Publish(planner.Event{Kind: planner.EventRejected, SessionID: "s1"})
	bus.Publish(planner.Event{Kind: planner.EventSubmitted, SessionID: "broken", Entries: entries})
	bus.Publish(planner.Event{Kind: planner.EventSubmitted, SessionID: "s1", Scheme: "demo", Time: now, Entries: entries})
	bus.Publish(planner.Event{Kind: planner.EventEntryMoved, SessionID: "s1", Entries: entries})

	require.Eventually(t, func() bool { return len(pub.Sent()) == 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	sent := pub.Sent()
	checks := []struct {
		name      string
		got, want any
	}{
		{"kind", sent[0].Kind, "submitted"},
		{"scheme", sent[0].Scheme, "demo"},
		{"timestamp", sent[0].Timestamp, now.UnixMilli()},
		{"entries", len(sent[0].Entries), 1},
		{"second", sent[1].Kind, "entry_moved"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestForwardStopsOnClose(t *testing.T) {
	bus := eventbus.NewTyped[planner.Event]()
	done := Forward(context.Background(), bus, NewMockPublisher(), ForwardConfig{}, nil)
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
}
