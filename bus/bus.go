package bus

import (
	"time"

	"github.com/sat8bit/roundtable/message"
)

// EventKind は、バスに流れるイベントの種別を表します。
type EventKind string

const (
	EventSessionStarted        EventKind = "session_started"
	EventTypingStart           EventKind = "typing_start"
	EventTypingStop            EventKind = "typing_stop"
	EventMessage               EventKind = "message"
	EventInterventionRequested EventKind = "intervention_requested"
	EventLog                   EventKind = "log"
)

// Event は、購読者に配送される1件の通知です。
type Event struct {
	Kind    EventKind
	Speaker string
	Message *message.Message
	Meta    map[string]string
	At      time.Time
}

// Busはイベントの送受信責務を持つ。配送はベストエフォートであり、
// 購読者がいない場合でも Publish は失敗しない。
type Bus interface {
	Publish(e *Event) error
	Subscribe() <-chan *Event
	HasListeners() bool
	Close()
}
