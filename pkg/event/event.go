// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	BodyAdded          Type = "body_added"
	BodyRemoved        Type = "body_removed"
	CollisionDetected  Type = "collision_detected"
	StepCompleted      Type = "step_completed"
	SimulationDiverged Type = "simulation_diverged"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it from the
// bus; calling Cancel more than once is harmless.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Publishing is synchronous
// and handlers run on the publisher's goroutine.
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[eventType]
	for i, r := range regs {
		if r.id != id {
			continue
		}
		// copy so a Publish iterating the old slice is unaffected
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, eventType)
		} else {
			b.handlers[eventType] = next
		}
		return
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// Specific event implementations

// BodyEvent reports a body entering or leaving the world. Reason is set for
// removals ("culled", "diverged", "removed", "reset").
type BodyEvent struct {
	BaseEvent
	BodyID uint64
	Kind   string
	Reason string
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, bodyID uint64, kind string) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BodyID: bodyID,
		Kind:   kind,
	}
}

// CollisionEvent reports one contact found during a step
type CollisionEvent struct {
	BaseEvent
	BodyA  uint64
	BodyB  uint64
	Depth  float64
	Normal [2]float64
}

// NewCollisionEvent creates a new collision event
func NewCollisionEvent(source interface{}, bodyA, bodyB uint64, depth float64, normal [2]float64) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{
			EventType: CollisionDetected,
			Source:    source,
		},
		BodyA:  bodyA,
		BodyB:  bodyB,
		Depth:  depth,
		Normal: normal,
	}
}

// StepEvent reports a completed simulation step
type StepEvent struct {
	BaseEvent
	Step     uint64
	Bodies   int
	Contacts int
}

// NewStepEvent creates a new step event
func NewStepEvent(eventType Type, source interface{}, step uint64, bodies, contacts int) *StepEvent {
	return &StepEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Step:     step,
		Bodies:   bodies,
		Contacts: contacts,
	}
}
