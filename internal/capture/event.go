package capture

// EventKind identifies a lifecycle event.
type EventKind int

const (
	EventFrameDelivered EventKind = iota + 1
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventFrameDelivered:
		return "frame"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is sent from the worker to the consumer. Closed is terminal.
type Event struct {
	Kind  EventKind
	Frame Frame
}

func FrameDelivered(f Frame) Event { return Event{Kind: EventFrameDelivered, Frame: f} }

func ClosedEvent() Event { return Event{Kind: EventClosed} }
