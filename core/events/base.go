package events

import "time"

// Kind discriminates session events in type switches and logs.
type Kind string

// Event is the surface every session event shares. Concrete events embed
// Base and add their payload fields on top.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries an event's kind and creation time. The timestamp is taken
// when the event is built, not when it is delivered.
type Base struct {
	kind       Kind
	occurredAt time.Time
}

func newBase(kind Kind) Base {
	return Base{kind: kind, occurredAt: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

// Timestamp reports when the event was created.
func (b Base) Timestamp() time.Time { return b.occurredAt }
