package session

import (
	"context"
	"time"
)

// EventType enumerates supported session lifecycle events.
type EventType string

const (
	EventBootstrap      EventType = "session.bootstrap"
	EventLoginSuccess   EventType = "session.login.success"
	EventLoginFailure   EventType = "session.login.failure"
	EventRefreshSuccess EventType = "session.refresh.success"
	EventRefreshFailure EventType = "session.refresh.failure"
	EventLogout         EventType = "session.logout"
	EventExpired        EventType = "session.expired"
)

// Event captures audit-friendly information about a session transition.
type Event struct {
	EventType  EventType
	State      State
	Subject    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// EventSink consumes session events for auditing/telemetry purposes. Sinks
// run best-effort: errors are logged and never block session operations.
type EventSink interface {
	Record(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event Event) error

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Record(context.Context, Event) error {
	return nil
}

func normalizeEventSink(s EventSink) EventSink {
	if s == nil {
		return noopEventSink{}
	}
	return s
}

// StateListener observes session state transitions. Listeners are invoked
// after the transition is applied, outside the manager's lock.
type StateListener func(state State, identity *UserIdentity)
