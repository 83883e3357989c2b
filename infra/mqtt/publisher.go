package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/vaxcal/core/mqtt"
	"github.com/kilianp07/vaxcal/core/planner"
	"github.com/kilianp07/vaxcal/infra/logger"
	"github.com/kilianp07/vaxcal/internal/eventbus"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records calendars in memory. Sessions listed in FailSessions
// fail to publish.
type MockPublisher struct {
	Messages     []coremqtt.CalendarMessage
	FailSessions map[string]bool
	AckResults   map[string]bool
	mu           sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailSessions: make(map[string]bool),
		AckResults:   make(map[string]bool),
	}
}

// PublishCalendar records msg or returns an error if configured to fail.
func (m *MockPublisher) PublishCalendar(msg coremqtt.CalendarMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSessions[msg.SessionID] {
		return "", fmt.Errorf("publish failed")
	}
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("msg-%s-%d", msg.SessionID, len(m.Messages))
	}
	m.Messages = append(m.Messages, msg)
	m.AckResults[msg.MessageID] = true
	return msg.MessageID, nil
}

// WaitForAck simulates an immediate acknowledgment.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownMessage, messageID)
	}
	return ok, nil
}

// Sent returns a copy of the recorded messages.
func (m *MockPublisher) Sent() []coremqtt.CalendarMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.CalendarMessage(nil), m.Messages...)
}

// ForwardConfig tunes Forward.
type ForwardConfig struct {
	// AckTimeout enables waiting for a device ack when positive.
	AckTimeout time.Duration
}

// Forward publishes the calendar carried by every calendar-changing session
// event until ctx is canceled or the bus is closed. The returned channel is
// closed when forwarding stops.
func Forward(ctx context.Context, bus *eventbus.TypedBus[planner.Event], pub Publisher, cfg ForwardConfig, log logger.Logger) <-chan struct{} {
	if log == nil {
		log = logger.NopLogger{}
	}
	return bus.Consume(ctx, func(ev planner.Event) {
		if !ev.Kind.ChangesCalendar() {
			return
		}
		id, err := pub.PublishCalendar(coremqtt.CalendarMessage{
			SessionID: ev.SessionID,
			Scheme:    ev.Scheme,
			Kind:      string(ev.Kind),
			Timestamp: ev.Time.UnixMilli(),
			Entries:   ev.Entries,
		})
		if err != nil {
			log.Errorf("forward %s for session %s: %v", ev.Kind, ev.SessionID, err)
			return
		}
		if cfg.AckTimeout <= 0 {
			return
		}
		if ok, err := pub.WaitForAck(id, cfg.AckTimeout); err != nil || !ok {
			log.Warnf("no ack for %s: %v", id, err)
		}
	})
}
