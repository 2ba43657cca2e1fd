package actions

import "time"

// State is the lifecycle state of an action instance
type State string

const (
	StateReady     State = "READY"
	StateRunning   State = "RUNNING"
	StatePaused    State = "PAUSED"
	StateCanceled  State = "CANCELED"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// IsTerminal returns true once no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCanceled || s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}

// EventKind names the transition that produced an Event
type EventKind string

const (
	EventStart   EventKind = "start"
	EventPause   EventKind = "pause"
	EventResume  EventKind = "resume"
	EventCancel  EventKind = "cancel"
	EventSucceed EventKind = "succeed"
	EventFail    EventKind = "fail"
)

// Event records one observable transition of an instance.
// Seq starts at 1 and increases by one per event of the same instance.
type Event struct {
	Seq        int       `json:"seq"`
	Kind       EventKind `json:"kind"`
	InstanceID string    `json:"id"`
	ActionName string    `json:"action"`
	State      State     `json:"state"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
