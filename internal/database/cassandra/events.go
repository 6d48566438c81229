package cassandra

import "time"

// EventName identifies a lifecycle or activity notification.
type EventName string

const (
	EventConnectionOpening EventName = "connectionOpening"
	EventConnectionOpened  EventName = "connectionOpened"
	EventConnectionFailed  EventName = "connectionFailed"
	EventConnectionClosed  EventName = "connectionClosed"
	EventConnectionLogged  EventName = "connectionLogged"
	EventQueryExecuted     EventName = "queryExecuted"
)

// Event is delivered to the driver's Emitter. Only the fields relevant to
// Name are set.
type Event struct {
	Name EventName

	// RequestID correlates opening/opened/failed/closed for one pool.
	RequestID string
	Keyspace  string

	Err error

	// Client log forwarding.
	Level   string
	Message string
	Data    any

	// Query execution.
	Statement string
	Duration  time.Duration
}

// Emitter receives driver events. Implementations must be safe for
// concurrent use: events arrive from connect goroutines and from the
// client's own log goroutines.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Emitters fans an event out to several emitters in order.
type Emitters []Emitter

func (es Emitters) Emit(e Event) {
	for _, em := range es {
		if em != nil {
			em.Emit(e)
		}
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}
