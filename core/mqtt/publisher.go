// Package mqtt defines how calendars are pushed to reminder devices.
package mqtt

import (
	"time"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// CalendarMessage is the payload sent to a reminder device.
type CalendarMessage struct {
	MessageID string               `json:"message_id"`
	SessionID string               `json:"session_id"`
	Scheme    string               `json:"scheme"`
	Kind      string               `json:"kind"`
	Timestamp int64                `json:"timestamp"`
	Entries   []schedule.EntryView `json:"entries"`
}

// Ack is sent back by a device once it stored a calendar.
type Ack struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

// Publisher sends calendars to devices and tracks their acknowledgments.
type Publisher interface {
	// PublishCalendar sends msg and returns the message identifier used to
	// track the acknowledgment.
	PublishCalendar(msg CalendarMessage) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}

// Topic prefix used when none is configured.
const DefaultTopicPrefix = "vaxcal"

// CalendarTopic is where the calendar of a session is published.
func CalendarTopic(prefix, sessionID string) string {
	return prefix + "/calendar/" + sessionID
}

// AckTopic matches acknowledgments from every session.
func AckTopic(prefix string) string {
	return prefix + "/ack/+"
}
