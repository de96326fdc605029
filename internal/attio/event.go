package attio

import "fmt"

// Event is the kind of change being synchronized in either direction.
type Event string

const (
	EventCreate Event = "create"
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

// pastTense is used for outbound event names such as "user.created".
func (e Event) pastTense() string {
	switch e {
	case EventCreate:
		return "created"
	case EventUpdate:
		return "updated"
	case EventDelete:
		return "deleted"
	}
	return string(e)
}

// EventName builds the outbound event name for a local model.
func EventName(localModel string, e Event) string {
	return fmt.Sprintf("%s.%s", localModel, e.pastTense())
}

// ParseEventType maps an inbound Attio event type to an Event.
// ok is false for types the reconciler does not handle.
func ParseEventType(eventType string) (Event, bool) {
	switch eventType {
	case "record.created":
		return EventCreate, true
	case "record.updated":
		return EventUpdate, true
	case "record.deleted":
		return EventDelete, true
	}
	return "", false
}
