package builder

import (
	"log/slog"
	"sync"
)

// EventType names a kind of builder event.
type EventType string

const (
	EventBuildStarted   EventType = "build_started"
	EventBuildSucceeded EventType = "build_succeeded"
	EventBuildFailed    EventType = "build_failed"
	EventLintFinding    EventType = "lint_finding"
)

// Event represents a builder event. Data is the start time for
// EventBuildStarted, a *BuildResult for finished builds and a
// DiagnosticReport for lint findings.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus provides pub/sub for builder events and remembers the last
// event of each type for subscribers that join late.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType]map[uint64]EventHandler
	allHandlers map[uint64]EventHandler
	last        map[EventType]Event
	nextID      uint64
	logger      *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers:    make(map[EventType]map[uint64]EventHandler),
		allHandlers: make(map[uint64]EventHandler),
		last:        make(map[EventType]Event),
		logger:      logger,
	}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType EventType, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[uint64]EventHandler)
	}
	eb.handlers[eventType][id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.handlers[eventType], id)
	}
}

// OnAll registers a handler that receives all events.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.allHandlers[id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.allHandlers, id)
	}
}

// Last returns the most recent event of a type.
func (eb *EventBus) Last(eventType EventType) (Event, bool) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	ev, ok := eb.last[eventType]
	return ev, ok
}

// Emit sends an event to all matching handlers.
// Handlers are called synchronously; a panicking handler is recovered.
func (eb *EventBus) Emit(event Event) {
	eb.mu.Lock()
	eb.last[event.Type] = event
	handlers := make([]EventHandler, 0, len(eb.handlers[event.Type])+len(eb.allHandlers))
	for _, h := range eb.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range eb.allHandlers {
		handlers = append(handlers, h)
	}
	eb.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
				}
			}()
			h(event)
		}()
	}
}
