package event

import (
	"time"

	"github.com/strideos/stride/kernel/process"
)

// Kinds of scheduler events.
const (
	KindSpawned         = "spawned"
	KindDispatched      = "dispatched"
	KindPreempted       = "preempted"
	KindYielded         = "yielded"
	KindBlocked         = "blocked"
	KindUnblocked       = "unblocked"
	KindExited          = "exited"
	KindPriorityChanged = "priorityChanged"
	KindIdle            = "idle"
)

// Context identifies which process a scheduler event concerns.
type Context struct {
	PID     process.PID `json:"pid"`
	Program string      `json:"program,omitempty"`
	Kind    string      `json:"kind"`
}

// Event carries a typed payload together with its scheduling context.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event for the supplied context and payload.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:  context,
		Metadata: make(map[string]interface{}),
		Data:     data,
	}
}
