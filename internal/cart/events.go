package cart

import "context"

// EventName identifies a cart mutation.
type EventName string

const (
	EventItemAdded   EventName = "item.added"
	EventItemUpdated EventName = "item.updated"
	EventItemRemoved EventName = "item.removed"

	EventRowCreated EventName = "cart.created"
	EventRowUpdated EventName = "cart.updated"
	EventRowRemoved EventName = "cart.removed"
)

// Event describes a line change. Quantity is the line quantity after the change.
type Event struct {
	Name     EventName
	ClientID string
	SkuID    string
	Quantity int
}

// Listener receives cart events synchronously.
type Listener func(ctx context.Context, event Event)

type eventRecorder interface {
	IncEvent(event string)
}

// MetricsListener counts events on the provided recorder.
func MetricsListener(rec eventRecorder) Listener {
	return func(_ context.Context, event Event) {
		if rec != nil {
			rec.IncEvent(string(event.Name))
		}
	}
}

func dispatch(ctx context.Context, listeners []Listener, event Event) {
	for _, l := range listeners {
		if l != nil {
			l(ctx, event)
		}
	}
}
