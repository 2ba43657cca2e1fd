package events

import (
	"time"

	"jordanella.com/gamebot-go/internal/actions"
)

// EventType represents different types of events in the system
type EventType string

const (
	// EventTypeAll subscribes a handler to every event type
	EventTypeAll EventType = "*"

	// Job events, one per instance transition
	EventTypeJobCreated   EventType = "job.created"
	EventTypeJobStarted   EventType = "job.started"
	EventTypeJobPaused    EventType = "job.paused"
	EventTypeJobResumed   EventType = "job.resumed"
	EventTypeJobCanceled  EventType = "job.canceled"
	EventTypeJobSucceeded EventType = "job.succeeded"
	EventTypeJobFailed    EventType = "job.failed"

	// Registry events
	EventTypeActionRegistered EventType = "action.registered"

	// Actuator events
	EventTypeActuatorDisconnected EventType = "actuator.disconnected"
	EventTypeGame                 EventType = "game.event"

	// Error events
	EventTypeError EventType = "error"
)

// JobEventTypes lists every job transition type
var JobEventTypes = []EventType{
	EventTypeJobCreated,
	EventTypeJobStarted,
	EventTypeJobPaused,
	EventTypeJobResumed,
	EventTypeJobCanceled,
	EventTypeJobSucceeded,
	EventTypeJobFailed,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // bot name or component that emitted the event
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type, or for all
	// of them with EventTypeAll
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking until queued)
	Publish(event Event)

	// PublishAsync sends an event asynchronously (non-blocking)
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

var jobEventTypes = map[actions.EventKind]EventType{
	actions.EventStart:   EventTypeJobStarted,
	actions.EventPause:   EventTypeJobPaused,
	actions.EventResume:  EventTypeJobResumed,
	actions.EventCancel:  EventTypeJobCanceled,
	actions.EventSucceed: EventTypeJobSucceeded,
	actions.EventFail:    EventTypeJobFailed,
}

// NewJobCreatedEvent creates a job created event
func NewJobCreatedEvent(source string, info actions.Info) Event {
	return Event{
		Type:      EventTypeJobCreated,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"job_id": info.ID,
			"action": info.Action,
			"args":   info.Args,
			"state":  string(info.State),
		},
	}
}

// NewJobTransitionEvent maps an instance event onto the bus
func NewJobTransitionEvent(source string, ev actions.Event) Event {
	data := map[string]interface{}{
		"job_id": ev.InstanceID,
		"action": ev.ActionName,
		"state":  string(ev.State),
		"seq":    ev.Seq,
	}
	if ev.Message != "" {
		data["message"] = ev.Message
	}
	return Event{
		Type:      jobEventTypes[ev.Kind],
		Source:    source,
		Timestamp: ev.Timestamp,
		Data:      data,
	}
}

// NewActionRegisteredEvent creates an action registered event
func NewActionRegisteredEvent(source, name string, predefined bool) Event {
	return Event{
		Type:      EventTypeActionRegistered,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"action":     name,
			"predefined": predefined,
		},
	}
}

// NewActuatorDisconnectedEvent creates an actuator disconnected event
func NewActuatorDisconnectedEvent(source string, err error) Event {
	data := map[string]interface{}{}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeActuatorDisconnected,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewGameEvent creates an event for something the game reported, such as chat
func NewGameEvent(source, id, name string, args []actions.Arg) Event {
	return Event{
		Type:      EventTypeGame,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"event_id": id,
			"name":     name,
			"args":     actions.CloneArgs(args),
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source string, err error, context map[string]interface{}) Event {
	data := map[string]interface{}{
		"error": err.Error(),
	}
	for k, v := range context {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// JobID returns the job id carried by a job event, if any
func (e Event) JobID() string {
	id, _ := e.Data["job_id"].(string)
	return id
}
