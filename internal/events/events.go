package events

import "context"

// Auth lifecycle event types pushed to dashboard subscribers.
const (
	EventAuthStateChanged = "auth_state_changed"
	EventAuthWarning      = "auth_warning"
	EventSessionCleared   = "session_cleared"

	// EventReloadRequired tells the dashboard to do a full reload. Emitted on
	// chain switches, where every on-chain view is stale at once.
	EventReloadRequired = "reload_required"
)

// StreamAuth is the pub/sub channel auth events go out on.
const StreamAuth = "events:auth"

// Event is the envelope delivered to subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Publisher fans an event out to all current subscribers.
type Publisher interface {
	Publish(ctx context.Context, stream string, ev Event) error
}

// Subscriber receives events for a stream. Returned cancel stops delivery
// and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context, stream string) (<-chan Event, func(), error)
}

// Bus is both ends of the event pipe.
type Bus interface {
	Publisher
	Subscriber
}
